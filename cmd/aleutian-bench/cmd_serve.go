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
	"github.com/AleutianAI/AleutianBench/cmd/aleutian-bench/config"
	"github.com/AleutianAI/AleutianBench/services/bench/collect"
	"github.com/AleutianAI/AleutianBench/services/bench/serve"
	"github.com/spf13/cobra"
)

func runServe(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("addr") {
		cfg.Serve.Addr = serveAddr
	}
	if flags.Changed("rate-limit") {
		cfg.Serve.RateLimit = serveRateLimit
	}
	if flags.Changed("burst") {
		cfg.Serve.Burst = serveBurst
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	logger, err := newLogger(cmd, cfg.Logging)
	if err != nil {
		return err
	}
	defer logger.Close()

	collector := collect.New(
		collect.WithExtension(cfg.Extension),
		collect.WithLogger(logger.Slog()),
	)
	server := serve.New(collector, root,
		serve.WithLogger(logger.Slog()),
		serve.WithRateLimit(cfg.Serve.RateLimit, cfg.Serve.Burst),
	)
	return server.Run(cmd.Context(), cfg.Serve.Addr)
}
