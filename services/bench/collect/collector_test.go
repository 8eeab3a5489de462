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
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/AleutianAI/AleutianBench/services/bench/results"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeRows(t *testing.T, path string, rows ...results.Row) {
	t.Helper()
	require.NoError(t, results.WriteFile(path, rows))
}

func row(key, sys, desc string, min float64) results.Row {
	return results.Row{Key: key, System: sys, Description: desc, Runs: 1, Minimum: min, Maximum: min, Mean: min, Median: min}
}

func TestCollect_SortsStably(t *testing.T) {
	dir := t.TempDir()
	writeRows(t, filepath.Join(dir, "go.csv"),
		row("b", "go", "x", 1),
		row("a", "go", "x", 2),
		row("a", "go", "x", 3),
	)

	report, err := New(WithLogger(quietLogger())).Collect(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, report.Rows, 3)

	assert.Equal(t, "a", report.Rows[0].Key)
	assert.Equal(t, 2.0, report.Rows[0].Minimum, "equal rows keep file order")
	assert.Equal(t, "a", report.Rows[1].Key)
	assert.Equal(t, 3.0, report.Rows[1].Minimum)
	assert.Equal(t, "b", report.Rows[2].Key)
}

func TestCollect_SortKeys(t *testing.T) {
	dir := t.TempDir()
	writeRows(t, filepath.Join(dir, "one.csv"),
		row("k", "wasm", "b", 1),
		row("k", "go", "b", 1),
		row("k", "go", "a", 1),
		row("j", "zz", "zz", 1),
	)

	report, err := New().Collect(context.Background(), dir)
	require.NoError(t, err)

	var got []string
	for _, r := range report.Rows {
		got = append(got, r.Key+"/"+r.System+"/"+r.Description)
	}
	assert.Equal(t, []string{"j/zz/zz", "k/go/a", "k/go/b", "k/wasm/b"}, got)
}

func TestCollect_Nested(t *testing.T) {
	dir := t.TempDir()
	writeRows(t, filepath.Join(dir, "go.csv"), row("a", "go", "x", 1))
	writeRows(t, filepath.Join(dir, "wasm", "deep", "wasm.csv"), row("a", "wasm", "x", 1))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	report, err := New().Collect(context.Background(), dir)
	require.NoError(t, err)
	assert.Len(t, report.Files, 2)
	assert.Len(t, report.Rows, 2)
	assert.Empty(t, report.Skipped)
}

func TestCollect_SkipsBadFiles(t *testing.T) {
	dir := t.TempDir()
	writeRows(t, filepath.Join(dir, "good.csv"), row("a", "go", "x", 1), row("b", "go", "x", 1))
	bad := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(bad, []byte("this is not,a result file\n1,2\n"), 0o644))

	parsedBefore := testutil.ToFloat64(collectFilesTotal.WithLabelValues("parsed"))
	skippedBefore := testutil.ToFloat64(collectFilesTotal.WithLabelValues("skipped"))
	rowsBefore := testutil.ToFloat64(collectRowsTotal)

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	report, err := New(WithLogger(logger)).Collect(context.Background(), dir)
	require.NoError(t, err)
	assert.Len(t, report.Rows, 2)
	assert.Equal(t, []string{bad}, report.Skipped)
	assert.Len(t, report.Files, 2)
	assert.Contains(t, logs.String(), "bad.csv")

	assert.Equal(t, parsedBefore+1, testutil.ToFloat64(collectFilesTotal.WithLabelValues("parsed")))
	assert.Equal(t, skippedBefore+1, testutil.ToFloat64(collectFilesTotal.WithLabelValues("skipped")))
	assert.Equal(t, rowsBefore+2, testutil.ToFloat64(collectRowsTotal))
}

func TestCollect_NoInput(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.md"), []byte("x"), 0o644))

	report, err := New().Collect(context.Background(), dir)
	assert.ErrorIs(t, err, ErrNoInput)
	require.NotNil(t, report)
	assert.Empty(t, report.Rows)
}

func TestCollect_MissingRoot(t *testing.T) {
	_, err := New().Collect(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestCollect_Cancelled(t *testing.T) {
	dir := t.TempDir()
	writeRows(t, filepath.Join(dir, "go.csv"), row("a", "go", "x", 1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().Collect(ctx, dir)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWithExtension(t *testing.T) {
	dir := t.TempDir()
	writeRows(t, filepath.Join(dir, "go.tsv"), row("a", "go", "x", 1))
	writeRows(t, filepath.Join(dir, "go.csv"), row("b", "go", "x", 1))

	report, err := New(WithExtension("tsv")).Collect(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, report.Rows, 1)
	assert.Equal(t, "a", report.Rows[0].Key)
}

func TestReport_Render(t *testing.T) {
	report := &Report{Rows: []results.Row{
		{Key: "a", System: "go", Description: "mut", Runs: 10, Minimum: 1, Maximum: 2, Mean: 1.5, Median: 2},
		{Key: "a", System: "wasm", Description: "mut", Runs: 3, Minimum: 10, Maximum: 20, Mean: 15, Median: 20},
		{Key: "long_key", System: "go", Description: "imm", Runs: 1, Minimum: 100, Maximum: 100, Mean: 100, Median: 100},
	}}

	want := strings.Join([]string{
		"     key  sys desc runs minimum maximum   mean median",
		"",
		"       a   go  mut   10    1.00    2.00   1.50   2.00",
		"       a wasm  mut    3   10.00   20.00  15.00  20.00",
		"",
		"long_key   go  imm    1  100.00  100.00 100.00 100.00",
		"",
	}, "\n")
	assert.Equal(t, want, report.String())
}

func TestCollect_EchoesFileCells(t *testing.T) {
	dir := t.TempDir()
	content := strings.Join([]string{
		"key,sys,desc,runs,minimum,maximum,mean,median",
		"b,node,x,4,12.3,13,12.5,12.75",
		`"a","go","x","2","1.00","2.00","1.50","2.00"`,
		"",
	}, "\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mixed.csv"), []byte(content), 0o644))

	report, err := New(WithLogger(quietLogger())).Collect(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, report.Cells, 2)

	// Cells follow their rows through the sort.
	assert.Equal(t, "a", report.Rows[0].Key)
	assert.Equal(t, []string{"a", "go", "x", "2", "1.00", "2.00", "1.50", "2.00"}, report.Cells[0])
	assert.Equal(t, 12.3, report.Rows[1].Minimum)
	assert.Equal(t, []string{"b", "node", "x", "4", "12.3", "13", "12.5", "12.75"}, report.Cells[1])

	want := strings.Join([]string{
		"key  sys desc runs minimum maximum mean median",
		"",
		"  a   go    x    2    1.00    2.00 1.50   2.00",
		"",
		"  b node    x    4    12.3      13 12.5  12.75",
		"",
	}, "\n")
	assert.Equal(t, want, report.String())
}

func TestReport_RenderHeaderStyle(t *testing.T) {
	report := &Report{Rows: []results.Row{row("key_longer_than_header", "go", "x", 1)}}

	var plain, styled bytes.Buffer
	require.NoError(t, report.Render(&plain))
	require.NoError(t, report.Render(&styled, WithHeaderStyle(func(s string) string { return "[" + s + "]" })))

	plainLines := strings.Split(plain.String(), "\n")
	styledLines := strings.Split(styled.String(), "\n")
	assert.True(t, strings.HasPrefix(styledLines[0], "["+strings.Repeat(" ", len("key_longer_than_header")-3)+"key]"))
	assert.Equal(t, plainLines[1:], styledLines[1:], "styling only touches the header")
}

func TestReport_RenderEmpty(t *testing.T) {
	assert.Equal(t, "key sys desc runs minimum maximum mean median\n", (&Report{}).String())
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var reports []*Report
	var errs []error
	updated := make(chan struct{}, 16)

	c := New(WithDebounce(20*time.Millisecond), WithLogger(quietLogger()))
	done := make(chan error, 1)
	go func() {
		done <- c.Watch(ctx, dir, func(r *Report, err error) {
			mu.Lock()
			reports = append(reports, r)
			errs = append(errs, err)
			mu.Unlock()
			updated <- struct{}{}
		})
	}()

	select {
	case <-updated:
	case <-time.After(2 * time.Second):
		t.Fatal("no initial report")
	}
	mu.Lock()
	assert.ErrorIs(t, errs[0], ErrNoInput)
	mu.Unlock()

	writeRows(t, filepath.Join(dir, "go.csv"), row("a", "go", "x", 1))

	deadline := time.After(5 * time.Second)
	for found := false; !found; {
		select {
		case <-updated:
			mu.Lock()
			last := reports[len(reports)-1]
			found = errs[len(errs)-1] == nil && len(last.Rows) == 1
			mu.Unlock()
		case <-deadline:
			t.Fatal("no report after writing a result file")
		}
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestWatch_NilHandler(t *testing.T) {
	assert.Error(t, New().Watch(context.Background(), t.TempDir(), nil))
}
