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
	"fmt"
	"time"

	"github.com/AleutianAI/AleutianBench/cmd/aleutian-bench/config"
	"github.com/AleutianAI/AleutianBench/pkg/ux"
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	configPath string
	logLevel   string
	colorFlag  string
	colorMode  ux.ColorMode

	// run
	runSystem           string
	runOutput           string
	runMetricsFile      string
	runWarmup           time.Duration
	runBatchConcurrency int

	// collect
	collectExt      string
	collectWatch    bool
	collectDebounce time.Duration

	// init-config
	initForce bool

	// history
	historyLimit int
	pruneKeep    int

	// serve
	serveAddr      string
	serveRateLimit float64
	serveBurst     int

	rootCmd = &cobra.Command{
		Use:   "aleutian-bench",
		Short: "Runs micro-benchmark suites and collects their results",
		Long: `aleutian-bench times reference workloads under a per-trial budget,
writes one CSV row per trial, and merges result files from several
systems into a single aligned report.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			mode, err := ux.ParseColorMode(colorFlag)
			if err != nil {
				return err
			}
			colorMode = mode
			return nil
		},
	}

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the configured trials and write the result file",
		Args:  cobra.NoArgs,
		RunE:  runBenchmarks, // Defined in cmd_run.go
	}

	collectCmd = &cobra.Command{
		Use:   "collect [dir]",
		Short: "Merge every result file under dir into one report",
		Args:  cobra.MaximumNArgs(1),
		RunE:  collectResults, // Defined in cmd_collect.go
	}

	initConfigCmd = &cobra.Command{
		Use:   "init-config [path]",
		Short: fmt.Sprintf("Write the default configuration (default %s)", config.DefaultPath),
		Args:  cobra.MaximumNArgs(1),
		RunE:  runInitConfig, // Defined in cmd_init.go
	}

	workloadsCmd = &cobra.Command{
		Use:   "workloads",
		Short: "List the registered workloads",
		Args:  cobra.NoArgs,
		RunE:  listWorkloads, // Defined in cmd_workloads.go
	}

	historyCmd = &cobra.Command{
		Use:   "history [system]",
		Short: "List archived runs, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runHistoryList, // Defined in cmd_history.go
	}

	historyShowCmd = &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print the report of one archived run",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistoryShow,
	}

	historyPruneCmd = &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the newest runs of each system",
		Args:  cobra.NoArgs,
		RunE:  runHistoryPrune,
	}

	publishCmd = &cobra.Command{
		Use:   "publish <file>",
		Short: "Send an existing result file to the configured destinations",
		Args:  cobra.ExactArgs(1),
		RunE:  runPublish, // Defined in cmd_publish.go
	}

	serveCmd = &cobra.Command{
		Use:   "serve [dir]",
		Short: "Serve the merged report of dir over HTTP and WebSocket",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runServe, // Defined in cmd_serve.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "Path to the YAML configuration")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&colorFlag, "color", string(ux.ColorAuto), "Colour output (auto, always, never)")

	runCmd.Flags().StringVar(&runSystem, "system", "", "System tag written to the sys column")
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "", "Result file path")
	runCmd.Flags().StringVar(&runMetricsFile, "metrics-file", "", "Write Prometheus metrics to this file after the run")
	runCmd.Flags().DurationVar(&runWarmup, "warmup", 0, "Warmup delay before the first trial")
	runCmd.Flags().IntVar(&runBatchConcurrency, "batch-concurrency", 0, "Maximum concurrently running batch members (0 = unlimited)")
	rootCmd.AddCommand(runCmd)

	collectCmd.Flags().StringVar(&collectExt, "ext", "", "Result file extension (default from config)")
	collectCmd.Flags().BoolVarP(&collectWatch, "watch", "w", false, "Re-render the report when result files change")
	collectCmd.Flags().DurationVar(&collectDebounce, "debounce", 200*time.Millisecond, "Quiet period before re-collecting in watch mode")
	rootCmd.AddCommand(collectCmd)

	initConfigCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing file")
	rootCmd.AddCommand(initConfigCmd)

	rootCmd.AddCommand(workloadsCmd)

	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of runs to list (0 = all)")
	historyPruneCmd.Flags().IntVar(&pruneKeep, "keep", 50, "Runs to keep per system")
	historyCmd.AddCommand(historyShowCmd, historyPruneCmd)
	rootCmd.AddCommand(historyCmd)

	rootCmd.AddCommand(publishCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config)")
	serveCmd.Flags().Float64Var(&serveRateLimit, "rate-limit", 0, "Report requests per second per server (0 = unlimited)")
	serveCmd.Flags().IntVar(&serveBurst, "burst", 0, "Rate limiter burst size")
	rootCmd.AddCommand(serveCmd)
}
