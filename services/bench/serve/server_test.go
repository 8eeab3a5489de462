// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package serve

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/AleutianAI/AleutianBench/services/bench/collect"
	"github.com/AleutianAI/AleutianBench/services/bench/results"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeResults(t *testing.T, dir, name string, rows ...results.Row) {
	t.Helper()
	require.NoError(t, results.WriteFile(filepath.Join(dir, name), rows))
}

func newTestServer(t *testing.T, root string, opts ...Option) *Server {
	t.Helper()
	c := collect.New(collect.WithLogger(quietLogger()), collect.WithDebounce(20*time.Millisecond))
	return New(c, root, append([]Option{WithLogger(quietLogger())}, opts...)...)
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

var row = results.Row{Key: "k_1_1", System: "go", Description: "d", Runs: 2, Minimum: 1, Maximum: 2, Mean: 1.5, Median: 2}

func TestServer_Health(t *testing.T) {
	s := newTestServer(t, t.TempDir())
	w := get(t, s.Handler(), "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestServer_NotReady(t *testing.T) {
	s := newTestServer(t, t.TempDir())

	assert.Equal(t, http.StatusServiceUnavailable, get(t, s.Handler(), "/report").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, s.Handler(), "/report.json").Code)
}

func TestServer_Report(t *testing.T) {
	root := t.TempDir()
	writeResults(t, root, "results_go.csv", row)

	s := newTestServer(t, root)
	s.Refresh(context.Background())

	w := get(t, s.Handler(), "/report")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))

	want := (&collect.Report{Rows: []results.Row{row}}).String()
	assert.Equal(t, want, w.Body.String())

	w = get(t, s.Handler(), "/report.json")
	require.Equal(t, http.StatusOK, w.Code)

	var snap Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, []results.Row{row}, snap.Rows)
	assert.Len(t, snap.Files, 1)
	assert.Empty(t, snap.Error)
	assert.False(t, snap.UpdatedAt.IsZero())
}

func TestServer_NoInput(t *testing.T) {
	s := newTestServer(t, t.TempDir())
	s.Refresh(context.Background())

	w := get(t, s.Handler(), "/report")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, NoInputMessage+"\n", w.Body.String())

	w = get(t, s.Handler(), "/report.json")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), NoInputMessage)
}

func TestServer_CollectError(t *testing.T) {
	s := newTestServer(t, filepath.Join(t.TempDir(), "missing"))
	s.Refresh(context.Background())

	assert.Equal(t, http.StatusInternalServerError, get(t, s.Handler(), "/report").Code)
}

func TestServer_RateLimit(t *testing.T) {
	root := t.TempDir()
	writeResults(t, root, "r.csv", row)

	s := newTestServer(t, root, WithRateLimit(0.001, 1))
	s.Refresh(context.Background())

	assert.Equal(t, http.StatusOK, get(t, s.Handler(), "/report").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(t, s.Handler(), "/report.json").Code)
	assert.Equal(t, http.StatusOK, get(t, s.Handler(), "/health").Code, "health is not limited")
}

func TestServer_Metrics(t *testing.T) {
	s := newTestServer(t, t.TempDir())
	w := get(t, s.Handler(), "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestServer_WebSocket(t *testing.T) {
	root := t.TempDir()
	writeResults(t, root, "a.csv", row)

	s := newTestServer(t, root)
	s.Refresh(context.Background())

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))

	var first Snapshot
	require.NoError(t, ws.ReadJSON(&first))
	assert.Len(t, first.Rows, 1)

	second := row
	second.System = "wasm"
	writeResults(t, root, "b.csv", second)
	s.Refresh(context.Background())

	var next Snapshot
	require.NoError(t, ws.ReadJSON(&next))
	assert.Len(t, next.Rows, 2)

	require.NoError(t, ws.Close())
	assert.Eventually(t, func() bool { return s.hub.size() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestServer_Serve(t *testing.T) {
	root := t.TempDir()
	s := newTestServer(t, root)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	base := "http://" + ln.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	status := func(path string) int {
		resp, err := http.Get(base + path)
		if err != nil {
			return 0
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	require.Eventually(t, func() bool { return status("/report.json") == http.StatusNotFound },
		5*time.Second, 10*time.Millisecond)

	writeResults(t, root, "results_go.csv", row)

	require.Eventually(t, func() bool { return status("/report.json") == http.StatusOK },
		5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestHub_LatestWins(t *testing.T) {
	h := newHub()
	ch, unsubscribe := h.subscribe()

	h.broadcast(Snapshot{Error: "one"})
	h.broadcast(Snapshot{Error: "two"})

	assert.Equal(t, "two", (<-ch).Error)
	assert.Equal(t, 1, h.size())

	unsubscribe()
	assert.Zero(t, h.size())
	h.broadcast(Snapshot{Error: "three"})
}
