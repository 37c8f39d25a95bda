// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package linearize

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("typegraph.linearize")
	meter  = otel.Meter("typegraph.linearize")
)

// OpenTelemetry instruments, created lazily.
var (
	runLatency metric.Float64Histogram
	runTotal   metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// Prometheus collectors for CLI textfile export.
var (
	actionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "typegraph",
		Subsystem: "linearize",
		Name:      "actions_total",
		Help:      "Action log entries by strategy and kind",
	}, []string{"strategy", "kind"})

	maxCycleSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "typegraph",
		Subsystem: "linearize",
		Name:      "max_cycle_size",
		Help:      "Largest cyclic component observed per run",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
	}, []string{"strategy"})
)

func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		runLatency, err = meter.Float64Histogram(
			"linearize_run_duration_seconds",
			metric.WithDescription("Duration of linearization runs"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		runTotal, err = meter.Int64Counter(
			"linearize_run_total",
			metric.WithDescription("Total number of linearization runs"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func recordRunMetrics(ctx context.Context, strategy Strategy, duration time.Duration, counts ActionCounts, maxCycle int) {
	s := strategy.String()
	actionsTotal.WithLabelValues(s, Accepted.String()).Add(float64(counts.Accepted))
	actionsTotal.WithLabelValues(s, EdgeRemoved.String()).Add(float64(counts.EdgesRemoved))
	actionsTotal.WithLabelValues(s, VertexRemoved.String()).Add(float64(counts.VerticesRemoved))
	maxCycleSize.WithLabelValues(s).Observe(float64(maxCycle))

	if err := initMetrics(); err != nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("strategy", s))
	runLatency.Record(ctx, duration.Seconds(), attrs)
	runTotal.Add(ctx, 1, attrs)
}

func startRunSpan(ctx context.Context, strategy Strategy, vertices, edges int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Engine.Run",
		trace.WithAttributes(
			attribute.String("linearize.strategy", strategy.String()),
			attribute.Int("linearize.vertex_count", vertices),
			attribute.Int("linearize.edge_count", edges),
		),
	)
}

func setRunSpanResult(span trace.Span, counts ActionCounts, maxCycle, residual int) {
	span.SetAttributes(
		attribute.Int("linearize.actions", counts.Total()),
		attribute.Int("linearize.edges_removed", counts.EdgesRemoved),
		attribute.Int("linearize.vertices_removed", counts.VerticesRemoved),
		attribute.Int("linearize.max_cycle_size", maxCycle),
		attribute.Int("linearize.residual_cycle_size", residual),
	)
}
