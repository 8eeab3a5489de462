// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package results converts trials to result rows and stores them as
// quoted CSV files.
package results

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/AleutianAI/AleutianBench/services/bench"
	"github.com/AleutianAI/AleutianBench/services/bench/stats"
)

// Columns is the fixed result file schema, in order.
var Columns = []string{"key", "sys", "desc", "runs", "minimum", "maximum", "mean", "median"}

var (
	// ErrMalformedRow indicates a record with the wrong arity or a
	// non-numeric statistic.
	ErrMalformedRow = errors.New("malformed result row")

	// ErrBadHeader indicates a result file whose header is not Columns.
	ErrBadHeader = errors.New("unexpected result header")
)

// Row is one serialized trial.
//
// Statistics are microseconds. Rows built by FromTrial keep full
// precision; Record formats them with two fractional digits.
type Row struct {
	Key         string  `json:"key"`
	System      string  `json:"sys"`
	Description string  `json:"desc"`
	Runs        int     `json:"runs"`
	Minimum     float64 `json:"minimum"`
	Maximum     float64 `json:"maximum"`
	Mean        float64 `json:"mean"`
	Median      float64 `json:"median"`
}

// FromTrial reduces a trial to a row.
//
// Description:
//
//	Summarizes the trial samples and copies key and description. The trial
//	is not modified. system identifies the implementation that produced the
//	trial, for example "go" or "go-wasm".
//
// Outputs:
//   - Row: The unrounded row.
//   - error: Wraps stats.ErrNoSamples if the trial has no samples.
func FromTrial(t *bench.Trial, system string) (Row, error) {
	if t == nil {
		return Row{}, errors.New("trial must not be nil")
	}
	s, err := stats.Summarize(t.Samples())
	if err != nil {
		return Row{}, fmt.Errorf("summarizing trial %s: %w", t.Key(), err)
	}
	return Row{
		Key:         t.Key(),
		System:      system,
		Description: t.Description(),
		Runs:        s.Count,
		Minimum:     s.Min,
		Maximum:     s.Max,
		Mean:        s.Mean,
		Median:      s.Median,
	}, nil
}

// Rows converts every trial of run, in registration order.
func Rows(run *bench.Run) ([]Row, error) {
	if run == nil {
		return nil, bench.ErrNilRun
	}
	trials := run.Trials()
	rows := make([]Row, 0, len(trials))
	for _, t := range trials {
		row, err := FromTrial(t, run.System)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Record returns the row fields in Columns order.
func (r Row) Record() []string {
	return []string{
		r.Key,
		r.System,
		r.Description,
		strconv.Itoa(r.Runs),
		stats.Format(r.Minimum),
		stats.Format(r.Maximum),
		stats.Format(r.Mean),
		stats.Format(r.Median),
	}
}

// Rounded returns the row as it reads back from a result file.
func (r Row) Rounded() Row {
	r.Minimum = stats.Round(r.Minimum)
	r.Maximum = stats.Round(r.Maximum)
	r.Mean = stats.Round(r.Mean)
	r.Median = stats.Round(r.Median)
	return r
}

// ParseRecord is the inverse of Record.
func ParseRecord(rec []string) (Row, error) {
	if len(rec) != len(Columns) {
		return Row{}, fmt.Errorf("%w: want %d fields, got %d", ErrMalformedRow, len(Columns), len(rec))
	}

	runs, err := strconv.Atoi(rec[3])
	if err != nil {
		return Row{}, fmt.Errorf("%w: runs %q", ErrMalformedRow, rec[3])
	}

	var nums [4]float64
	for i := range nums {
		field := rec[4+i]
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return Row{}, fmt.Errorf("%w: %s %q", ErrMalformedRow, Columns[4+i], field)
		}
		nums[i] = v
	}

	return Row{
		Key:         rec[0],
		System:      rec[1],
		Description: rec[2],
		Runs:        runs,
		Minimum:     nums[0],
		Maximum:     nums[1],
		Mean:        nums[2],
		Median:      nums[3],
	}, nil
}
