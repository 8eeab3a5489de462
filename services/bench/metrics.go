// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package bench

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("aleutian.bench")

// Metrics for trial execution.
var (
	invocationsTotal metric.Int64Counter
	sampleMicros     metric.Float64Histogram
	trialsTotal      metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		invocationsTotal, err = meter.Int64Counter(
			"bench_invocations_total",
			metric.WithDescription("Total number of workload invocations"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		sampleMicros, err = meter.Float64Histogram(
			"bench_sample_microseconds",
			metric.WithDescription("Latency samples recorded by workloads"),
			metric.WithUnit("us"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		trialsTotal, err = meter.Int64Counter(
			"bench_trials_total",
			metric.WithDescription("Total number of trials by outcome"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func recordInvocation(ctx context.Context, key string, mode Mode, micros float64) {
	if initMetrics() != nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("key", key),
		attribute.String("mode", mode.String()),
	)
	invocationsTotal.Add(ctx, 1, attrs)
	sampleMicros.Record(ctx, micros, attrs)
}

func recordTrial(ctx context.Context, key, status string) {
	if initMetrics() != nil {
		return
	}
	trialsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("key", key),
		attribute.String("status", status),
	))
}
