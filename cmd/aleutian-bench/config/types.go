// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the aleutian-bench YAML configuration.
package config

import (
	"fmt"
	"time"

	"github.com/AleutianAI/AleutianBench/pkg/logging"
	"github.com/AleutianAI/AleutianBench/services/bench/telemetry"
	"gopkg.in/yaml.v3"
)

// BenchConfig is the root of aleutian-bench.yaml.
type BenchConfig struct {
	// System identifies the implementation that produced the results.
	// It is written to the sys column of every row.
	System string `yaml:"system" validate:"required"`

	// Output is the result file written once at the end of a run.
	Output string `yaml:"output" validate:"required"`

	// Warmup is the unmeasured delay before the sequential trials and
	// before each batch.
	Warmup Duration `yaml:"warmup" validate:"gte=0"`

	// BatchConcurrency caps concurrently running batch members.
	// Zero means no limit.
	BatchConcurrency int `yaml:"batch_concurrency" validate:"gte=0"`

	// Extension selects result files for collect.
	Extension string `yaml:"extension" validate:"required,startswith=."`

	// MetricsFile, when set, receives a Prometheus textfile dump after a run.
	MetricsFile string `yaml:"metrics_file,omitempty"`

	Logging   logging.Config   `yaml:"logging"`
	Telemetry telemetry.Config `yaml:"telemetry"`
	Archive   ArchiveConfig    `yaml:"archive"`
	Publish   PublishConfig    `yaml:"publish"`
	Serve     ServeConfig      `yaml:"serve"`

	// Trials run in file order. Trials that share a batch name run together
	// at the position of the first of them.
	Trials []TrialConfig `yaml:"trials" validate:"required,min=1,dive"`
}

// TrialConfig describes one trial.
type TrialConfig struct {
	// Workload is a registry ID, see "aleutian-bench workloads".
	Workload string `yaml:"workload" validate:"required"`

	// Name overrides the workload's trial name.
	Name string `yaml:"name,omitempty"`

	// Description overrides the workload's variant label.
	Description string `yaml:"description,omitempty"`

	Size int `yaml:"size" validate:"gte=0"`

	// OmitSize drops size from the key even if the workload uses it.
	OmitSize bool `yaml:"omit_size,omitempty"`

	Iterations int `yaml:"iterations" validate:"gte=0"`

	// Budget is how long the trial keeps starting invocations. A zero
	// budget still runs the workload once.
	Budget Duration `yaml:"budget" validate:"gte=0"`

	// Batch groups trials that run concurrently.
	Batch string `yaml:"batch,omitempty"`
}

// ArchiveConfig controls the local run history.
type ArchiveConfig struct {
	// Enabled saves every successful run.
	Enabled bool `yaml:"enabled"`

	// Path is the BadgerDB directory.
	Path string `yaml:"path" validate:"required_if=Enabled true"`

	// Keep is how many runs per system survive pruning after a save.
	// Zero keeps everything.
	Keep int `yaml:"keep" validate:"gte=0"`
}

// PublishConfig lists the destinations a finished run is sent to.
type PublishConfig struct {
	Influx InfluxConfig `yaml:"influx"`
	GCS    GCSConfig    `yaml:"gcs"`
}

// InfluxConfig addresses an InfluxDB 2 bucket.
type InfluxConfig struct {
	Enabled     bool   `yaml:"enabled"`
	URL         string `yaml:"url" validate:"required_if=Enabled true"`
	Org         string `yaml:"org" validate:"required_if=Enabled true"`
	Bucket      string `yaml:"bucket" validate:"required_if=Enabled true"`
	Measurement string `yaml:"measurement,omitempty"`

	// TokenEnv names the environment variable holding the API token.
	TokenEnv string `yaml:"token_env"`
}

// GCSConfig addresses a Cloud Storage bucket.
type GCSConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket" validate:"required_if=Enabled true"`
	Prefix          string `yaml:"prefix,omitempty"`
	CredentialsFile string `yaml:"credentials_file,omitempty"`
	Endpoint        string `yaml:"endpoint,omitempty"`
}

// ServeConfig configures "aleutian-bench serve".
type ServeConfig struct {
	Addr string `yaml:"addr" validate:"required"`

	// RateLimit is report requests per second. Zero disables limiting.
	RateLimit float64 `yaml:"rate_limit" validate:"gte=0"`
	Burst     int     `yaml:"burst" validate:"gte=0"`
}

// Duration is a time.Duration written as a Go duration string ("1.5s").
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// MarshalYAML writes the duration string.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML accepts a duration string or an integer of nanoseconds.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", node.Line)
	}
	if parsed, err := time.ParseDuration(node.Value); err == nil {
		*d = Duration(parsed)
		return nil
	}
	var ns int64
	if err := node.Decode(&ns); err != nil {
		return fmt.Errorf("line %d: invalid duration %q", node.Line, node.Value)
	}
	*d = Duration(ns)
	return nil
}
