// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package collect

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// collectFilesTotal counts result files by outcome.
	collectFilesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bench_collect_files_total",
		Help: "Result files seen by the collector, by status",
	}, []string{"status"})

	// collectRowsTotal counts rows read from result files.
	collectRowsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bench_collect_rows_total",
		Help: "Rows read from result files",
	})
)

func recordFile(status string, rows int) {
	collectFilesTotal.WithLabelValues(status).Inc()
	if rows > 0 {
		collectRowsTotal.Add(float64(rows))
	}
}
