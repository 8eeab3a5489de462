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
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), otelgin.Middleware(serviceName), s.logRequests())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	reports := r.Group("/", s.rateLimit())
	reports.GET("/report", s.handleReport)
	reports.GET("/report.json", s.handleReportJSON)
	reports.GET("/ws", s.handleWebSocket)

	return r
}

func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter != nil && !s.limiter.Allow() {
			rateLimitedTotal.Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("latency", time.Since(start)),
		)
	}
}

// statusFor maps the snapshot state to an HTTP status.
func statusFor(snap Snapshot, ready bool) int {
	switch {
	case !ready:
		return http.StatusServiceUnavailable
	case snap.Error == NoInputMessage:
		return http.StatusNotFound
	case snap.Error != "":
		return http.StatusInternalServerError
	default:
		return http.StatusOK
	}
}

func (s *Server) handleReport(c *gin.Context) {
	snap, report, ready := s.current()
	status := statusFor(snap, ready)

	switch status {
	case http.StatusOK:
		c.Header("Content-Type", "text/plain; charset=utf-8")
		c.Status(status)
		if err := report.Render(c.Writer); err != nil {
			s.logger.Warn("render failed", slog.String("error", err.Error()))
		}
	case http.StatusServiceUnavailable:
		c.String(status, "report not ready\n")
	default:
		c.String(status, snap.Error+"\n")
	}
}

func (s *Server) handleReportJSON(c *gin.Context) {
	snap, _, ready := s.current()
	status := statusFor(snap, ready)
	if !ready {
		c.JSON(status, gin.H{"error": "report not ready"})
		return
	}
	c.JSON(status, snap)
}

func (s *Server) handleWebSocket(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("failed to upgrade the websocket", slog.String("error", err.Error()))
		return
	}
	defer ws.Close()

	updates, unsubscribe := s.hub.subscribe()
	defer unsubscribe()

	wsClients.Inc()
	defer wsClients.Dec()

	if snap, _, ready := s.current(); ready {
		if err := s.send(ws, snap); err != nil {
			return
		}
	}

	// Reads only detect the peer going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := ws.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case <-s.closing:
			_ = ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(time.Second))
			return
		case snap := <-updates:
			if err := s.send(ws, snap); err != nil {
				return
			}
		}
	}
}

func (s *Server) send(ws *websocket.Conn, snap Snapshot) error {
	_ = ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	err := ws.WriteJSON(snap)
	if err != nil {
		s.logger.Debug("failed to write WebSocket JSON", slog.String("error", err.Error()))
	}
	return err
}
