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

	"github.com/AleutianAI/AleutianBench/pkg/ux"
	"github.com/AleutianAI/AleutianBench/services/bench/collect"
	"github.com/spf13/cobra"
)

const noInputMessage = "No CSV files found in the directory."

func collectResults(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ext := cfg.Extension
	if collectExt != "" {
		ext = collectExt
	}

	logger, err := newLogger(cmd, cfg.Logging)
	if err != nil {
		return err
	}
	defer logger.Close()

	collector := collect.New(
		collect.WithExtension(ext),
		collect.WithLogger(logger.Slog()),
		collect.WithDebounce(collectDebounce),
	)
	out := ux.NewPrinter(cmd.OutOrStdout(), colorMode)

	if collectWatch {
		return watchReport(cmd.Context(), collector, root, out)
	}
	return printReport(cmd.Context(), collector, root, out)
}

// printReport collects once. ErrNoInput is printed and still returned so
// the command exits non-zero.
func printReport(ctx context.Context, c *collect.Collector, root string, out *ux.Printer) error {
	report, err := c.Collect(ctx, root)
	if errors.Is(err, collect.ErrNoInput) {
		fmt.Fprintln(out.Writer(), noInputMessage)
		return err
	}
	if err != nil {
		return err
	}
	return renderReport(out, report)
}

func renderReport(out *ux.Printer, report *collect.Report) error {
	if err := report.Render(out.Writer(), collect.WithHeaderStyle(out.HeaderStyle())); err != nil {
		return err
	}
	if n := len(report.Skipped); n > 0 {
		out.Warning("Skipped %d unreadable file(s)", n)
	}
	return nil
}

// watchReport re-renders on every change until ctx is cancelled.
func watchReport(ctx context.Context, c *collect.Collector, root string, out *ux.Printer) error {
	return c.Watch(ctx, root, func(report *collect.Report, err error) {
		out.Title(fmt.Sprintf("%s  %s", time.Now().Format(time.TimeOnly), root))
		switch {
		case errors.Is(err, collect.ErrNoInput):
			fmt.Fprintln(out.Writer(), noInputMessage)
		case err != nil:
			out.Error("%v", err)
		default:
			if rerr := renderReport(out, report); rerr != nil {
				out.Error("%v", rerr)
			}
		}
	})
}
