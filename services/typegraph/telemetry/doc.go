// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry wires the OpenTelemetry SDK for the typegraph CLI.
//
// Packages use otel.Tracer and otel.Meter directly. Init installs the
// providers that export what they record; with both exporters set to
// "none" the global no-op providers stay in place.
//
// # Exporters
//
// Traces: "otlp" (gRPC), "stdout" (pretty JSON on stderr) or "none".
// Metrics: "prometheus" (default registry), "stdout" or "none".
//
// A CLI run exits before anything scrapes it, so WriteMetricsFile dumps the
// default Prometheus registry in text exposition format instead. That file
// carries both the promauto engine counters and, with the prometheus
// exporter, the otel instruments.
//
// # Environment Variables
//
//   - OTEL_TRACES_EXPORTER: otlp, stdout, or none (default: none)
//   - OTEL_METRICS_EXPORTER: prometheus, stdout, or none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint (default: localhost:4317)
//   - TYPEGRAPH_ENV: environment name (default: development)
package telemetry
