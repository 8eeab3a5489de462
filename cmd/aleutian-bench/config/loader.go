// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/AleutianAI/AleutianBench/pkg/logging"
	"github.com/AleutianAI/AleutianBench/services/bench/telemetry"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up in the working directory.
const DefaultPath = "aleutian-bench.yaml"

var validate = validator.New()

// DefaultConfig returns the configuration used when no file exists.
//
// The default suite runs every slice and record workload at two sizes,
// then the solver twice as one batch.
func DefaultConfig() *BenchConfig {
	cfg := &BenchConfig{
		System:           "go",
		Output:           "results/results_go.csv",
		Warmup:           Duration(500 * time.Millisecond),
		BatchConcurrency: 0,
		Extension:        ".csv",
		Logging: logging.Config{
			Level:   logging.LevelInfo,
			Service: "aleutian-bench",
		},
		Telemetry: telemetry.DefaultConfig(),
		Archive: ArchiveConfig{
			Path: "results/.archive",
			Keep: 50,
		},
		Publish: PublishConfig{
			Influx: InfluxConfig{
				URL:      "http://localhost:8086",
				Org:      "aleutian",
				Bucket:   "bench",
				TokenEnv: "INFLUXDB_TOKEN",
			},
		},
		Serve: ServeConfig{
			Addr:      "127.0.0.1:8080",
			RateLimit: 10,
			Burst:     20,
		},
	}

	for _, id := range []string{
		"arr_create",
		"arr_push_mutation", "arr_push_copy",
		"arr_pop_mutation", "arr_pop_copy",
		"arr_slice",
		"record_set_mutation", "record_set_copy",
	} {
		for _, size := range []int{10, 100} {
			cfg.Trials = append(cfg.Trials, TrialConfig{
				Workload:   id,
				Size:       size,
				Iterations: 1000,
				Budget:     Duration(time.Second),
			})
		}
	}

	for _, iters := range []int{1, 5} {
		cfg.Trials = append(cfg.Trials, TrialConfig{
			Workload:   "send_more_money",
			Iterations: iters,
			Budget:     Duration(2 * time.Second),
			Batch:      "solver",
		})
	}
	return cfg
}

// Validate checks field constraints.
func Validate(cfg *BenchConfig) error {
	if cfg == nil {
		return errors.New("config must not be nil")
	}
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Load reads path on top of DefaultConfig and validates the result.
//
// Fields missing from the file keep their defaults; a trials list in the
// file replaces the default suite. The returned error wraps os.ErrNotExist
// when the file is missing.
func Load(path string) (*BenchConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read the config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// CreateDefault writes DefaultConfig to path, creating parent directories.
// It fails with an error wrapping os.ErrExist if path already exists.
func CreateDefault(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create the config directory: %w", err)
		}
	}

	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("failed to create the config file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
