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
	"errors"
	"fmt"
	"os"

	"github.com/AleutianAI/AleutianBench/cmd/aleutian-bench/config"
	"github.com/AleutianAI/AleutianBench/pkg/logging"
	"github.com/spf13/cobra"
)

// loadConfig reads --config. A missing default file yields DefaultConfig;
// a missing file named explicitly is an error.
func loadConfig(cmd *cobra.Command) (*config.BenchConfig, error) {
	cfg, err := config.Load(configPath)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, os.ErrNotExist) && !cmd.Flags().Changed("config") {
		return config.DefaultConfig(), nil
	}
	return nil, err
}

// newLogger applies --log-level and routes console logs to the command's
// stderr.
func newLogger(cmd *cobra.Command, cfg logging.Config) (*logging.Logger, error) {
	if logLevel != "" {
		level, err := logging.ParseLevel(logLevel)
		if err != nil {
			return nil, fmt.Errorf("invalid --log-level: %w", err)
		}
		cfg.Level = level
	}
	cfg.Output = cmd.ErrOrStderr()
	return logging.New(cfg), nil
}
