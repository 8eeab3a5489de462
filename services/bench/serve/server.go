// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package serve exposes a result directory over HTTP.
//
// Routes:
//
//	GET /health       liveness
//	GET /metrics      prometheus default registry
//	GET /report       the collect table as text/plain
//	GET /report.json  the current Snapshot
//	GET /ws           a Snapshot on connect and after every change
//
// The report routes share one token bucket rate limiter.
package serve

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/AleutianAI/AleutianBench/services/bench/collect"
	"github.com/AleutianAI/AleutianBench/services/bench/results"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	serviceName     = "aleutian-bench"
	shutdownTimeout = 5 * time.Second
	writeTimeout    = 10 * time.Second
)

// NoInputMessage is served when the directory holds no result files.
const NoInputMessage = "No CSV files found in the directory."

// Snapshot is the JSON form of the latest collection.
type Snapshot struct {
	Rows      []results.Row `json:"rows"`
	Files     []string      `json:"files"`
	Skipped   []string      `json:"skipped"`
	Error     string        `json:"error,omitempty"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. Nil is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRateLimit allows rps report requests per second with the given
// burst. rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		if rps <= 0 {
			s.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// Server serves the reports of one result directory.
//
// Thread Safety: Safe for concurrent use.
type Server struct {
	collector *collect.Collector
	root      string
	logger    *slog.Logger
	limiter   *rate.Limiter
	router    *gin.Engine
	hub       *hub

	closeOnce sync.Once
	closing   chan struct{}

	mu       sync.RWMutex
	report   *collect.Report
	snapshot Snapshot
	ready    bool
}

// New creates a server for root. Call Refresh or Serve before the report
// routes return data.
func New(c *collect.Collector, root string, opts ...Option) *Server {
	s := &Server{
		collector: c,
		root:      root,
		logger:    slog.Default(),
		hub:       newHub(),
		closing:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Refresh collects root once and publishes the result.
func (s *Server) Refresh(ctx context.Context) {
	s.update(s.collector.Collect(ctx, s.root))
}

// Run listens on addr and serves until ctx is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln and watches root until ctx is done or either fails.
// ln is closed on return.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.collector.Watch(gctx, s.root, s.update)
	})

	g.Go(func() error {
		s.logger.Info("serving reports", slog.String("addr", ln.Addr().String()), slog.String("root", s.root))
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.closeOnce.Do(func() { close(s.closing) })

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func (s *Server) update(report *collect.Report, err error) {
	snap := Snapshot{UpdatedAt: time.Now().UTC()}
	if report != nil {
		snap.Rows = report.Rows
		snap.Files = report.Files
		snap.Skipped = report.Skipped
	}
	if err != nil {
		snap.Error = err.Error()
		if errors.Is(err, collect.ErrNoInput) {
			snap.Error = NoInputMessage
		}
		s.logger.Debug("collect failed", slog.String("error", err.Error()))
	}

	s.mu.Lock()
	s.report = report
	s.snapshot = snap
	s.ready = true
	s.mu.Unlock()

	s.hub.broadcast(snap)
}

func (s *Server) current() (Snapshot, *collect.Report, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot, s.report, s.ready
}
