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
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AleutianAI/AleutianBench/cmd/aleutian-bench/config"
	"github.com/AleutianAI/AleutianBench/pkg/logging"
	"github.com/AleutianAI/AleutianBench/pkg/ux"
	"github.com/AleutianAI/AleutianBench/services/bench"
	"github.com/AleutianAI/AleutianBench/services/bench/results"
	"github.com/AleutianAI/AleutianBench/services/bench/runlock"
	"github.com/AleutianAI/AleutianBench/services/bench/telemetry"
	"github.com/AleutianAI/AleutianBench/services/workloads"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

func runBenchmarks(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("system") {
		cfg.System = runSystem
	}
	if flags.Changed("output") {
		cfg.Output = runOutput
	}
	if flags.Changed("metrics-file") {
		cfg.MetricsFile = runMetricsFile
	}
	if flags.Changed("warmup") {
		cfg.Warmup = config.Duration(runWarmup)
	}
	if flags.Changed("batch-concurrency") {
		cfg.BatchConcurrency = runBatchConcurrency
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	logger, err := newLogger(cmd, cfg.Logging)
	if err != nil {
		return err
	}
	defer logger.Close()

	printer := ux.NewPrinter(cmd.ErrOrStderr(), colorMode)
	return runSuite(cmd.Context(), cfg, workloads.Default(), logger, printer)
}

// runSuite executes every trial in cfg and writes the result file.
//
// The warmup runs once before the first step; batches use Engine.Join so
// they do not wait again. Any failure aborts the run before the
// result file is written. The output path stays locked for the whole run.
func runSuite(ctx context.Context, cfg *config.BenchConfig, reg *workloads.Registry, logger *logging.Logger, printer *ux.Printer) (err error) {
	steps, err := buildPlan(cfg.Trials, reg)
	if err != nil {
		return err
	}

	provider, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if serr := provider.Shutdown(shutdownCtx); serr != nil {
			logger.Warn("telemetry shutdown failed", "error", serr)
		}
	}()

	engine := bench.NewEngine(
		bench.WithLogger(logger.Slog()),
		bench.WithWarmup(cfg.Warmup.Std()),
		bench.WithBatchConcurrency(cfg.BatchConcurrency),
	)
	run := bench.NewRun(cfg.System)

	lock, err := runlock.Acquire(cfg.Output, run.ID, logger.Slog())
	if err != nil {
		return err
	}
	defer func() {
		if rerr := lock.Release(); rerr != nil {
			logger.Warn("releasing run lock failed", "error", rerr)
		}
	}()

	logger.Info("starting benchmark run",
		"run_id", run.ID,
		"system", run.System,
		"trials", len(cfg.Trials),
		"steps", len(steps),
	)

	spinner := ux.NewSpinner(printer, "Warming up")
	spinner.Start()

	if err := engine.Warmup(ctx); err != nil {
		spinner.StopWithError("Warmup interrupted")
		return err
	}

	for i, s := range steps {
		spinner.Update(fmt.Sprintf("[%d/%d] %s", i+1, len(steps), s.label()))
		if err := s.execute(ctx, engine, run); err != nil {
			spinner.StopWithError("%s failed", s.label())
			return err
		}
	}

	set, err := results.NewSet(run)
	if err != nil {
		spinner.StopWithError("Summarizing results failed")
		return err
	}
	if err := results.WriteFile(cfg.Output, set.Rows); err != nil {
		spinner.StopWithError("Writing %s failed", cfg.Output)
		return err
	}
	spinner.StopWithSuccess("Wrote %d rows to %s", len(set.Rows), cfg.Output)

	logger.Info("benchmark run complete",
		"run_id", run.ID,
		"rows", len(set.Rows),
		"output", cfg.Output,
		"elapsed", time.Since(run.StartedAt),
	)

	// The result file is already written; later failures are collected
	// and reported together.
	var errs []error
	if cfg.Archive.Enabled {
		if err := archiveRun(ctx, cfg.Archive, set, logger); err != nil {
			printer.Warning("Archiving run failed: %v", err)
			errs = append(errs, err)
		} else {
			printer.Muted("Run %s archived", set.RunID)
		}
	}

	if err := publishSet(ctx, cfg.Publish, set, logger); err != nil {
		printer.Warning("Publishing failed: %v", err)
		errs = append(errs, err)
	}

	if cfg.MetricsFile != "" {
		if err := provider.WriteMetrics(cfg.MetricsFile); err != nil {
			errs = append(errs, err)
		} else {
			printer.Muted("Metrics written to %s", cfg.MetricsFile)
		}
	}
	return errors.Join(errs...)
}
