// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package collect merges result files from a directory tree into one sorted
// report.
package collect

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/AleutianAI/AleutianBench/services/bench/results"
)

// ErrNoInput indicates that no result file was found under the root.
var ErrNoInput = errors.New("no result files found")

// Option configures a Collector.
type Option func(*Collector)

// WithExtension sets the result file extension. Default: ".csv".
func WithExtension(ext string) Option {
	return func(c *Collector) {
		if ext == "" {
			return
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.ext = ext
	}
}

// WithLogger sets the logger used for per-file problems.
func WithLogger(l *slog.Logger) Option {
	return func(c *Collector) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithDebounce sets how long Watch waits for changes to settle.
// Default: 200ms.
func WithDebounce(d time.Duration) Option {
	return func(c *Collector) {
		if d > 0 {
			c.debounce = d
		}
	}
}

// Collector finds, parses and merges result files.
//
// Thread Safety: Safe for concurrent use. A Collector holds only
// configuration.
type Collector struct {
	ext      string
	logger   *slog.Logger
	debounce time.Duration
}

// New creates a Collector.
func New(opts ...Option) *Collector {
	c := &Collector{
		ext:      ".csv",
		logger:   slog.Default(),
		debounce: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect builds a report from every result file under root.
//
// Description:
//
//	Walks root depth-first and parses each regular file whose extension
//	matches. A file that cannot be read or parsed is logged and skipped;
//	the other files still contribute. The merged rows are stably sorted by
//	key, then system, then description, so rows that compare equal keep
//	the order in which their files were found.
//
// Inputs:
//   - ctx: Cancels the walk. Must not be nil.
//   - root: Directory to search.
//
// Outputs:
//   - *Report: The merged report. Empty, not nil, with ErrNoInput.
//   - error: ErrNoInput if no file matched, or the walk error for root.
//
// Example:
//
//	report, err := collect.New().Collect(ctx, "results")
//	if errors.Is(err, collect.ErrNoInput) {
//	    fmt.Println("No CSV files found in the directory.")
//	    return nil
//	}
//	report.Render(os.Stdout)
func (c *Collector) Collect(ctx context.Context, root string) (*Report, error) {
	if ctx == nil {
		return nil, errors.New("context must not be nil")
	}

	report := &Report{}
	var entries []entry
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			c.logger.Warn("skipping unreadable path",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !d.Type().IsRegular() || !c.matches(path) {
			return nil
		}

		report.Files = append(report.Files, path)
		rows, cells, err := results.ReadFileRecords(path)
		if err != nil {
			c.logger.Warn("skipping result file",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
			report.Skipped = append(report.Skipped, path)
			recordFile("skipped", 0)
			return nil
		}

		c.logger.Debug("finished reading", slog.String("path", path), slog.Int("rows", len(rows)))
		for i := range rows {
			entries = append(entries, entry{row: rows[i], cells: cells[i]})
		}
		recordFile("parsed", len(rows))
		return nil
	})
	if err != nil {
		return &Report{}, fmt.Errorf("walking %s: %w", root, err)
	}

	if len(report.Files) == 0 {
		return report, ErrNoInput
	}

	sortEntries(entries)
	report.Rows = make([]results.Row, len(entries))
	report.Cells = make([][]string, len(entries))
	for i, e := range entries {
		report.Rows[i] = e.row
		report.Cells[i] = e.cells
	}
	return report, nil
}

func (c *Collector) matches(path string) bool {
	return filepath.Ext(path) == c.ext
}

// entry is a parsed row and the cells it was read from.
type entry struct {
	row   results.Row
	cells []string
}

// sortEntries orders rows by key, system and description, keeping the
// input order of equal rows.
func sortEntries(entries []entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].row, entries[j].row
		if a.Key != b.Key {
			return a.Key < b.Key
		}
		if a.System != b.System {
			return a.System < b.System
		}
		return a.Description < b.Description
	})
}
