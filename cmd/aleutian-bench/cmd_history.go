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
	"fmt"
	"io"
	"time"

	"github.com/AleutianAI/AleutianBench/cmd/aleutian-bench/config"
	"github.com/AleutianAI/AleutianBench/pkg/logging"
	"github.com/AleutianAI/AleutianBench/pkg/ux"
	"github.com/AleutianAI/AleutianBench/services/bench/archive"
	"github.com/AleutianAI/AleutianBench/services/bench/collect"
	"github.com/AleutianAI/AleutianBench/services/bench/results"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

func openArchive(cfg config.ArchiveConfig, logger *logging.Logger) (*archive.Archive, error) {
	acfg := archive.DefaultConfig(cfg.Path)
	acfg.Logger = logger.Slog()
	// CLI processes are short lived.
	acfg.GCInterval = 0
	return archive.Open(acfg)
}

// archiveRun saves set and prunes the archive to cfg.Keep runs per system.
func archiveRun(ctx context.Context, cfg config.ArchiveConfig, set results.Set, logger *logging.Logger) error {
	a, err := openArchive(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Save(ctx, set); err != nil {
		return err
	}
	if cfg.Keep > 0 {
		n, err := a.Prune(ctx, cfg.Keep)
		if err != nil {
			return err
		}
		if n > 0 {
			logger.Info("archive pruned", "deleted", n, "keep", cfg.Keep)
		}
	}
	return nil
}

// withArchive loads the config and opens the archive for a history command.
func withArchive(cmd *cobra.Command, fn func(a *archive.Archive, out *ux.Printer) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd, cfg.Logging)
	if err != nil {
		return err
	}
	defer logger.Close()

	a, err := openArchive(cfg.Archive, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(a, ux.NewPrinter(cmd.OutOrStdout(), colorMode))
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	system := ""
	if len(args) > 0 {
		system = args[0]
	}
	return withArchive(cmd, func(a *archive.Archive, out *ux.Printer) error {
		runs, err := a.List(cmd.Context(), system, historyLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			out.Muted("No archived runs.")
			return nil
		}
		return printHistory(out.Writer(), runs)
	})
}

func printHistory(w io.Writer, runs []archive.Summary) error {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("RUN ID", "SYSTEM", "STARTED", "ROWS")
	for _, r := range runs {
		t.Row(r.RunID, r.System, r.StartedAt.Local().Format(time.DateTime), fmt.Sprint(r.Rows))
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	return withArchive(cmd, func(a *archive.Archive, out *ux.Printer) error {
		set, err := a.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out.Title(fmt.Sprintf("%s  %s  %s", set.RunID, set.System, set.StartedAt.Local().Format(time.DateTime)))
		report := &collect.Report{Rows: set.Rows}
		return report.Render(out.Writer(), collect.WithHeaderStyle(out.HeaderStyle()))
	})
}

func runHistoryPrune(cmd *cobra.Command, args []string) error {
	return withArchive(cmd, func(a *archive.Archive, out *ux.Printer) error {
		n, err := a.Prune(cmd.Context(), pruneKeep)
		if err != nil {
			return err
		}
		out.Success("Deleted %d run(s)", n)
		return nil
	})
}
