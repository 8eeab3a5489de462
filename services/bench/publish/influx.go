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
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AleutianAI/AleutianBench/services/bench/results"
	"github.com/awnumar/memguard"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// DefaultMeasurement is the InfluxDB measurement rows are written to.
const DefaultMeasurement = "bench_trial"

// InfluxConfig addresses an InfluxDB 2 bucket.
type InfluxConfig struct {
	URL         string
	Org         string
	Bucket      string
	Measurement string
}

// InfluxOption configures an InfluxPublisher.
type InfluxOption func(*InfluxPublisher)

// WithWriteAPI replaces the client created per publish. The token is not
// used when a writer is supplied.
func WithWriteAPI(w api.WriteAPIBlocking) InfluxOption {
	return func(p *InfluxPublisher) {
		p.writer = w
	}
}

// InfluxPublisher writes one point per row.
//
// Each point is tagged with key, sys, desc and run_id and carries the row
// statistics as fields. The API token is sealed in a memguard enclave and
// only decrypted while a publish is in progress.
//
// Thread Safety: Safe for concurrent use.
type InfluxPublisher struct {
	cfg    InfluxConfig
	token  *memguard.Enclave
	writer api.WriteAPIBlocking
}

// NewInfluxPublisher creates a publisher. token is wiped after it has been
// sealed; an empty token connects without authentication.
func NewInfluxPublisher(cfg InfluxConfig, token []byte, opts ...InfluxOption) (*InfluxPublisher, error) {
	if cfg.URL == "" || cfg.Org == "" || cfg.Bucket == "" {
		return nil, errors.New("influx url, org and bucket are required")
	}
	if cfg.Measurement == "" {
		cfg.Measurement = DefaultMeasurement
	}

	p := &InfluxPublisher{cfg: cfg}
	if len(token) > 0 {
		p.token = memguard.NewEnclave(token)
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Name implements Publisher.
func (p *InfluxPublisher) Name() string { return "influxdb" }

// Publish implements Publisher.
func (p *InfluxPublisher) Publish(ctx context.Context, set results.Set) error {
	if len(set.Rows) == 0 {
		return ErrEmptySet
	}
	points := p.points(set)

	if p.writer != nil {
		if err := p.writer.WritePoint(ctx, points...); err != nil {
			return fmt.Errorf("writing %d points: %w", len(points), err)
		}
		return nil
	}

	token := ""
	if p.token != nil {
		buf, err := p.token.Open()
		if err != nil {
			return fmt.Errorf("opening token enclave: %w", err)
		}
		defer buf.Destroy()
		token = string(buf.Bytes())
	}

	client := influxdb2.NewClient(p.cfg.URL, token)
	defer client.Close()

	if err := client.WriteAPIBlocking(p.cfg.Org, p.cfg.Bucket).WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("writing %d points to %s: %w", len(points), p.cfg.Bucket, err)
	}
	return nil
}

func (p *InfluxPublisher) points(set results.Set) []*write.Point {
	points := make([]*write.Point, 0, len(set.Rows))
	for i, r := range set.Rows {
		points = append(points, influxdb2.NewPoint(
			p.cfg.Measurement,
			map[string]string{
				"key":    r.Key,
				"sys":    r.System,
				"desc":   r.Description,
				"run_id": set.RunID,
			},
			map[string]interface{}{
				"runs":    int64(r.Runs),
				"minimum": r.Minimum,
				"maximum": r.Maximum,
				"mean":    r.Mean,
				"median":  r.Median,
			},
			// Rows sharing a key would otherwise overwrite each other.
			set.StartedAt.Add(time.Duration(i)),
		))
	}
	return points
}
