// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package typeref

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for type graph builds.
var (
	tracer = otel.Tracer("typegraph.typeref")
	meter  = otel.Meter("typegraph.typeref")
)

var (
	buildLatency    metric.Float64Histogram
	buildTotal      metric.Int64Counter
	verticesCreated metric.Int64Histogram
	edgesCreated    metric.Int64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		buildLatency, err = meter.Float64Histogram(
			"typeref_build_duration_seconds",
			metric.WithDescription("Duration of type graph builds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		buildTotal, err = meter.Int64Counter(
			"typeref_build_total",
			metric.WithDescription("Total number of type graph builds"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		verticesCreated, err = meter.Int64Histogram(
			"typeref_vertices_created",
			metric.WithDescription("Number of vertices per build"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		edgesCreated, err = meter.Int64Histogram(
			"typeref_edges_created",
			metric.WithDescription("Number of edges per build"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func recordBuildMetrics(ctx context.Context, duration time.Duration, vertices, edges int, success bool) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(attribute.Bool("success", success))
	buildLatency.Record(ctx, duration.Seconds(), attrs)
	buildTotal.Add(ctx, 1, attrs)

	if success {
		verticesCreated.Record(ctx, int64(vertices))
		edgesCreated.Record(ctx, int64(edges))
	}
}

func startBuildSpan(ctx context.Context) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Builder.Build")
}

func setBuildSpanResult(span trace.Span, stats *Stats) {
	span.SetAttributes(
		attribute.Int("typeref.sources", stats.Sources),
		attribute.Int("typeref.classes", stats.Classes),
		attribute.Int("typeref.skipped_classes", stats.SkippedClasses),
		attribute.Int("typeref.malformed_descriptors", stats.MalformedDescriptors),
		attribute.Int("typeref.vertex_count", stats.Vertices),
		attribute.Int("typeref.edge_count", stats.Edges),
	)
}
