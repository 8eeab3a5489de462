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
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/AleutianAI/AleutianBench/services/bench/results"
	"github.com/charmbracelet/lipgloss"
)

// Report is the merged, sorted content of a result directory.
type Report struct {
	// Rows are sorted by key, system and description.
	Rows []results.Row

	// Cells holds the file text of each row, index-aligned with Rows. It is
	// nil for reports built in memory, which render from Rows.
	Cells [][]string

	// Files lists every matching file in walk order, including skipped ones.
	Files []string

	// Skipped lists files that could not be read or parsed.
	Skipped []string
}

// RenderOption configures Render.
type RenderOption func(*renderConfig)

type renderConfig struct {
	header func(string) string
}

// WithHeaderStyle styles each padded header cell. Column widths are
// computed before styling, so escape sequences do not shift the layout.
func WithHeaderStyle(style func(string) string) RenderOption {
	return func(c *renderConfig) {
		if style != nil {
			c.header = style
		}
	}
}

// Render writes the report as a right-aligned table.
//
// Description:
//
//	Rows read from files are shown exactly as written there; rows without
//	Cells are formatted with two decimals. Each column is as wide as its
//	widest cell or header. Cells are padded
//	on the left and separated by one space. A blank line is written before
//	each group of rows sharing a key, including the first group.
func (r *Report) Render(w io.Writer, opts ...RenderOption) error {
	cfg := renderConfig{header: func(s string) string { return s }}
	for _, opt := range opts {
		opt(&cfg)
	}

	records := make([][]string, len(r.Rows))
	for i, row := range r.Rows {
		if i < len(r.Cells) && len(r.Cells[i]) == len(results.Columns) {
			records[i] = r.Cells[i]
			continue
		}
		records[i] = row.Record()
	}

	widths := make([]int, len(results.Columns))
	for i, col := range results.Columns {
		widths[i] = lipgloss.Width(col)
	}
	for _, rec := range records {
		for i, cell := range rec {
			if n := lipgloss.Width(cell); n > widths[i] {
				widths[i] = n
			}
		}
	}

	bw := bufio.NewWriter(w)

	header := make([]string, len(results.Columns))
	for i, col := range results.Columns {
		header[i] = cfg.header(padLeft(col, widths[i]))
	}
	fmt.Fprintln(bw, strings.Join(header, " "))

	lastKey := ""
	line := make([]string, len(results.Columns))
	for _, rec := range records {
		if rec[0] != lastKey {
			fmt.Fprintln(bw)
			lastKey = rec[0]
		}
		for i, cell := range rec {
			line[i] = padLeft(cell, widths[i])
		}
		fmt.Fprintln(bw, strings.Join(line, " "))
	}

	return bw.Flush()
}

// String renders the report without styling.
func (r *Report) String() string {
	var sb strings.Builder
	_ = r.Render(&sb)
	return sb.String()
}

func padLeft(s string, width int) string {
	n := width - lipgloss.Width(s)
	if n <= 0 {
		return s
	}
	return strings.Repeat(" ", n) + s
}
