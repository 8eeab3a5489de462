// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package publish

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/AleutianAI/AleutianBench/services/bench/results"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var startedAt = time.Date(2026, 5, 4, 3, 2, 1, 0, time.UTC)

func testSet() results.Set {
	return results.Set{
		RunID:     "run-1",
		System:    "go",
		StartedAt: startedAt,
		Rows: []results.Row{
			{Key: "arr_push_10_100", System: "go", Description: "copy", Runs: 3, Minimum: 1, Maximum: 2, Mean: 1.5, Median: 2},
			{Key: "arr_push_10_100", System: "go", Description: "copy", Runs: 1, Minimum: 4, Maximum: 4, Mean: 4, Median: 4},
		},
	}
}

// --- Fakes ---

type fakePublisher struct {
	name string
	err  error

	mu    sync.Mutex
	calls int
}

func (f *fakePublisher) Name() string { return f.name }

func (f *fakePublisher) Publish(ctx context.Context, set results.Set) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.err
}

type mockWriteAPI struct {
	points []*write.Point
	err    error
}

func (m *mockWriteAPI) WritePoint(ctx context.Context, point ...*write.Point) error {
	m.points = append(m.points, point...)
	return m.err
}

func (m *mockWriteAPI) WriteRecord(ctx context.Context, line ...string) error { return nil }
func (m *mockWriteAPI) EnableBatching()                                       {}
func (m *mockWriteAPI) Flush(ctx context.Context) error                       { return nil }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- All ---

func TestAll(t *testing.T) {
	boom := errors.New("boom")
	ok := &fakePublisher{name: "ok"}
	bad := &fakePublisher{name: "bad", err: boom}
	other := &fakePublisher{name: "other"}

	err := All(context.Background(), quietLogger(), testSet(), ok, bad, other)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "bad: boom")

	assert.Equal(t, 1, ok.calls)
	assert.Equal(t, 1, bad.calls)
	assert.Equal(t, 1, other.calls, "a failure must not stop other publishers")
}

func TestAll_NoPublishers(t *testing.T) {
	assert.NoError(t, All(context.Background(), nil, testSet()))
}

func TestAll_EmptySet(t *testing.T) {
	p := &fakePublisher{name: "p"}
	err := All(context.Background(), nil, results.Set{RunID: "r"}, p)
	assert.ErrorIs(t, err, ErrEmptySet)
	assert.Zero(t, p.calls)
}

// --- Influx ---

func TestNewInfluxPublisher_Validation(t *testing.T) {
	_, err := NewInfluxPublisher(InfluxConfig{URL: "http://x", Org: "o"}, nil)
	assert.Error(t, err)

	p, err := NewInfluxPublisher(InfluxConfig{URL: "http://x", Org: "o", Bucket: "b"}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultMeasurement, p.cfg.Measurement)
	assert.Nil(t, p.token)
	assert.Equal(t, "influxdb", p.Name())
}

func TestInfluxPublisher_Points(t *testing.T) {
	mock := &mockWriteAPI{}
	p, err := NewInfluxPublisher(InfluxConfig{URL: "http://x", Org: "o", Bucket: "b"}, nil, WithWriteAPI(mock))
	require.NoError(t, err)

	require.NoError(t, p.Publish(context.Background(), testSet()))
	require.Len(t, mock.points, 2)

	first := mock.points[0]
	assert.Equal(t, DefaultMeasurement, first.Name())
	assert.Equal(t, startedAt, first.Time())
	assert.Equal(t, startedAt.Add(time.Nanosecond), mock.points[1].Time(), "duplicate keys get distinct timestamps")

	line := write.PointToLineProtocol(first, time.Nanosecond)
	assert.Contains(t, line, "bench_trial,desc=copy,key=arr_push_10_100,run_id=run-1,sys=go ")
	assert.Contains(t, line, "runs=3i")
	assert.Contains(t, line, "mean=1.5")
}

func TestInfluxPublisher_WriteError(t *testing.T) {
	mock := &mockWriteAPI{err: errors.New("unavailable")}
	p, err := NewInfluxPublisher(InfluxConfig{URL: "http://x", Org: "o", Bucket: "b"}, nil, WithWriteAPI(mock))
	require.NoError(t, err)

	err = p.Publish(context.Background(), testSet())
	assert.ErrorContains(t, err, "unavailable")

	assert.ErrorIs(t, p.Publish(context.Background(), results.Set{}), ErrEmptySet)
}

func TestInfluxPublisher_HTTP(t *testing.T) {
	var (
		mu    sync.Mutex
		auth  string
		query string
		body  bytes.Buffer
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/write" {
			http.NotFound(w, r)
			return
		}
		mu.Lock()
		auth = r.Header.Get("Authorization")
		query = r.URL.RawQuery
		_, _ = io.Copy(&body, r.Body)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	p, err := NewInfluxPublisher(
		InfluxConfig{URL: srv.URL, Org: "aleutian", Bucket: "bench"},
		[]byte("secret-token"),
	)
	require.NoError(t, err)

	require.NoError(t, p.Publish(context.Background(), testSet()))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "Token secret-token", auth)
	assert.Contains(t, query, "bucket=bench")
	assert.Contains(t, query, "org=aleutian")
	assert.Equal(t, 2, strings.Count(strings.TrimSpace(body.String()), "\n")+1)
	assert.Contains(t, body.String(), "key=arr_push_10_100")
}

// --- GCS ---

func TestGCSPublisher(t *testing.T) {
	var (
		mu     sync.Mutex
		paths  []string
		bodies []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		paths = append(paths, r.Method+" "+r.URL.Path)
		bodies = append(bodies, string(data))
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"bucket":"bench","name":"ci/go/20260504T030201Z_run-1.csv"}`)
	}))
	defer srv.Close()

	ctx := context.Background()
	p, err := NewGCSPublisher(ctx, GCSConfig{Bucket: "bench", Prefix: "ci", Endpoint: srv.URL + "/storage/v1/"})
	require.NoError(t, err)
	defer p.Close()

	set := testSet()
	assert.Equal(t, "ci/go/20260504T030201Z_run-1.csv", p.ObjectName(set))
	assert.Equal(t, "gcs", p.Name())

	require.NoError(t, p.Publish(ctx, set))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, paths, 1)
	assert.Equal(t, "POST /upload/storage/v1/b/bench/o", paths[0])
	assert.Contains(t, bodies[0], `"key","sys","desc","runs","minimum","maximum","mean","median"`)
	assert.Contains(t, bodies[0], "ci/go/20260504T030201Z_run-1.csv")
}

func TestNewGCSPublisher_Errors(t *testing.T) {
	_, err := NewGCSPublisher(context.Background(), GCSConfig{})
	assert.Error(t, err)

	_, err = NewGCSPublisher(context.Background(), GCSConfig{Bucket: "b", CredentialsFile: "/nonexistent/key.json"})
	assert.ErrorContains(t, err, "service account key not found")
}
