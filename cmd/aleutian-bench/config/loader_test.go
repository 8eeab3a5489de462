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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/AleutianAI/AleutianBench/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultPath)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, Validate(cfg))

	assert.Equal(t, "go", cfg.System)
	assert.Equal(t, 500*time.Millisecond, cfg.Warmup.Std())
	assert.Equal(t, ".csv", cfg.Extension)
	assert.NotEmpty(t, cfg.Trials)

	var batched int
	for _, tr := range cfg.Trials {
		if tr.Batch != "" {
			batched++
		}
	}
	assert.Equal(t, 2, batched)
}

func TestCreateDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", DefaultPath)
	require.NoError(t, CreateDefault(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "warmup: 500ms")
	assert.Contains(t, string(data), "level: info")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Trials, cfg.Trials)
	assert.Equal(t, logging.LevelInfo, cfg.Logging.Level)

	err = CreateDefault(path)
	assert.ErrorIs(t, err, os.ErrExist)
}

func TestLoad_Overrides(t *testing.T) {
	path := writeConfig(t, `
system: go-wasm
output: out/wasm.csv
warmup: 0s
batch_concurrency: 1
logging:
  level: debug
trials:
  - workload: arr_push_copy
    size: 5
    iterations: 20
    budget: 10ms
  - workload: send_more_money
    name: smm
    iterations: 1
    budget: 0s
    batch: solver
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "go-wasm", cfg.System)
	assert.Equal(t, "out/wasm.csv", cfg.Output)
	assert.Equal(t, time.Duration(0), cfg.Warmup.Std())
	assert.Equal(t, 1, cfg.BatchConcurrency)
	assert.Equal(t, logging.LevelDebug, cfg.Logging.Level)
	assert.Equal(t, ".csv", cfg.Extension, "missing fields keep defaults")

	require.Len(t, cfg.Trials, 2)
	assert.Equal(t, 10*time.Millisecond, cfg.Trials[0].Budget.Std())
	assert.Equal(t, "smm", cfg.Trials[1].Name)
	assert.Equal(t, "solver", cfg.Trials[1].Batch)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad yaml", "system: [unclosed"},
		{"bad duration", "warmup: soon"},
		{"negative size", "trials:\n  - workload: arr_create\n    size: -1\n"},
		{"missing workload", "trials:\n  - size: 1\n"},
		{"empty system", "system: \"\"\n"},
		{"bad extension", "extension: csv\n"},
		{"bad exporter", "telemetry:\n  trace_exporter: zipkin\n"},
		{"bad log level", "logging:\n  level: chatty\n"},
		{"empty trials", "trials: []\n"},
		{"archive without path", "archive:\n  enabled: true\n  path: \"\"\n"},
		{"gcs without bucket", "publish:\n  gcs:\n    enabled: true\n"},
		{"influx without url", "publish:\n  influx:\n    enabled: true\n    url: \"\"\n"},
		{"negative rate", "serve:\n  rate_limit: -1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_Sections(t *testing.T) {
	path := writeConfig(t, `
archive:
  enabled: true
  path: /tmp/bench-archive
  keep: 3
publish:
  influx:
    enabled: true
    bucket: nightly
  gcs:
    enabled: true
    bucket: bench-results
    prefix: ci
serve:
  addr: ":9090"
  rate_limit: 0
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.Archive.Enabled)
	assert.Equal(t, 3, cfg.Archive.Keep)
	assert.Equal(t, "nightly", cfg.Publish.Influx.Bucket)
	assert.Equal(t, "http://localhost:8086", cfg.Publish.Influx.URL, "unset fields keep defaults")
	assert.Equal(t, "INFLUXDB_TOKEN", cfg.Publish.Influx.TokenEnv)
	assert.Equal(t, "ci", cfg.Publish.GCS.Prefix)
	assert.Equal(t, ":9090", cfg.Serve.Addr)
	assert.Zero(t, cfg.Serve.RateLimit)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDuration_YAML(t *testing.T) {
	var v struct {
		D Duration `yaml:"d"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("d: 1500ms"), &v))
	assert.Equal(t, 1500*time.Millisecond, v.D.Std())

	require.NoError(t, yaml.Unmarshal([]byte("d: 2000"), &v))
	assert.Equal(t, 2*time.Microsecond, v.D.Std())

	assert.Error(t, yaml.Unmarshal([]byte("d: [1]"), &v))

	v.D = Duration(1500 * time.Millisecond)
	out, err := yaml.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, "d: 1.5s\n", string(out))
}
