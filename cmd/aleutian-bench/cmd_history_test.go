// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/AleutianAI/AleutianBench/pkg/ux"
	"github.com/AleutianAI/AleutianBench/services/bench/archive"
	"github.com/AleutianAI/AleutianBench/services/bench/results"
	"github.com/AleutianAI/AleutianBench/services/bench/runlock"
	"github.com/AleutianAI/AleutianBench/services/workloads"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunSuite_Archive(t *testing.T) {
	cfg := testConfig(t)
	cfg.Archive.Enabled = true
	cfg.Archive.Path = filepath.Join(t.TempDir(), "archive")
	cfg.Archive.Keep = 1

	var logs, out bytes.Buffer
	printer := ux.NewPrinter(&out, ux.ColorNever)
	logger := quietLogger(&logs)

	for i := 0; i < 2; i++ {
		require.NoError(t, runSuite(context.Background(), cfg, workloads.Default(), logger, printer), logs.String())
	}
	assert.Contains(t, out.String(), "archived")

	a, err := openArchive(cfg.Archive, logger)
	require.NoError(t, err)
	defer a.Close()

	runs, err := a.List(context.Background(), "go", 0)
	require.NoError(t, err)
	require.Len(t, runs, 1, "prune keeps one run per system")
	assert.Equal(t, 4, runs[0].Rows)

	set, err := a.Get(context.Background(), runs[0].RunID)
	require.NoError(t, err)
	written, err := results.ReadFile(cfg.Output)
	require.NoError(t, err)
	require.Len(t, set.Rows, len(written))
	for i, r := range set.Rows {
		assert.Equal(t, written[i], r.Rounded())
	}
}

func TestRunSuite_ArchiveFailure(t *testing.T) {
	cfg := testConfig(t)
	cfg.Archive.Enabled = true
	// A regular file where the archive directory should be.
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	cfg.Archive.Path = filepath.Join(blocker, "archive")

	var logs, out bytes.Buffer
	err := runSuite(context.Background(), cfg, workloads.Default(), quietLogger(&logs), ux.NewPrinter(&out, ux.ColorNever))
	require.Error(t, err)

	_, statErr := os.Stat(cfg.Output)
	assert.NoError(t, statErr, "result file is written before archiving")
	assert.Contains(t, out.String(), "Archiving run failed")
}

func TestRunSuite_Locked(t *testing.T) {
	cfg := testConfig(t)

	held, err := runlock.Acquire(cfg.Output, "other-run", nil)
	require.NoError(t, err)
	defer held.Release()

	var logs, out bytes.Buffer
	err = runSuite(context.Background(), cfg, workloads.Default(), quietLogger(&logs), ux.NewPrinter(&out, ux.ColorNever))
	require.ErrorIs(t, err, runlock.ErrLocked)
	assert.Contains(t, err.Error(), "other-run")
	assert.NoFileExists(t, cfg.Output)
}

func TestPrintHistory(t *testing.T) {
	started := time.Date(2025, 3, 1, 12, 0, 0, 0, time.Local)
	var buf bytes.Buffer
	err := printHistory(&buf, []archive.Summary{
		{RunID: "run-2", System: "go", StartedAt: started.Add(time.Hour), Rows: 10},
		{RunID: "run-1", System: "go", StartedAt: started, Rows: 8},
	})
	require.NoError(t, err)

	out := buf.String()
	for _, want := range []string{"RUN ID", "SYSTEM", "run-2", "run-1", "2025-03-01 12:00:00", "10"} {
		assert.Contains(t, out, want)
	}
	assert.Less(t, strings.Index(out, "run-2"), strings.Index(out, "run-1"))
}

func TestPublishFile_Influx(t *testing.T) {
	var (
		mu     sync.Mutex
		bodies []string
		auth   string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(body))
		auth = r.Header.Get("Authorization")
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "mixed.csv")
	require.NoError(t, results.WriteFile(path, []results.Row{
		{Key: "k_1", System: "go", Description: "d", Runs: 2, Minimum: 1, Maximum: 2, Mean: 1.5, Median: 2},
		{Key: "k_1", System: "node", Description: "d", Runs: 3, Minimum: 2, Maximum: 4, Mean: 3, Median: 3},
	}))

	t.Setenv("BENCH_TEST_TOKEN", "tok")
	cfg := testConfig(t).Publish
	cfg.Influx.Enabled = true
	cfg.Influx.URL = srv.URL
	cfg.Influx.TokenEnv = "BENCH_TEST_TOKEN"

	var logs, out bytes.Buffer
	err := publishFile(context.Background(), cfg, path, quietLogger(&logs), ux.NewPrinter(&out, ux.ColorNever))
	require.NoError(t, err, logs.String())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, bodies, 2, "one write per system")
	assert.Equal(t, "Token tok", auth)
	joined := strings.Join(bodies, "\n")
	assert.Contains(t, joined, "sys=go")
	assert.Contains(t, joined, "sys=node")
	assert.Contains(t, out.String(), "Published 1 go rows")
}

func TestPublishFile_Missing(t *testing.T) {
	var logs, out bytes.Buffer
	cfg := testConfig(t).Publish
	err := publishFile(context.Background(), cfg, filepath.Join(t.TempDir(), "none.csv"), quietLogger(&logs), ux.NewPrinter(&out, ux.ColorNever))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestBuildPublishers(t *testing.T) {
	cfg := testConfig(t).Publish

	pubs, done, err := buildPublishers(context.Background(), cfg)
	require.NoError(t, err)
	done()
	assert.Empty(t, pubs)

	cfg.Influx.Enabled = true
	pubs, done, err = buildPublishers(context.Background(), cfg)
	require.NoError(t, err)
	defer done()
	require.Len(t, pubs, 1)
	assert.Equal(t, "influxdb", pubs[0].Name())
}
