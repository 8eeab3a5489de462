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
	"os"

	"github.com/AleutianAI/AleutianBench/cmd/aleutian-bench/config"
	"github.com/AleutianAI/AleutianBench/pkg/logging"
	"github.com/AleutianAI/AleutianBench/pkg/ux"
	"github.com/AleutianAI/AleutianBench/services/bench/publish"
	"github.com/AleutianAI/AleutianBench/services/bench/results"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// errNoPublishers is returned by "publish" when no destination is enabled.
var errNoPublishers = errors.New("no publish destination enabled in the configuration")

// buildPublishers creates the enabled publishers. release closes them.
func buildPublishers(ctx context.Context, cfg config.PublishConfig) (pubs []publish.Publisher, release func(), err error) {
	var closers []func() error
	release = func() {
		for _, c := range closers {
			_ = c()
		}
	}

	if cfg.Influx.Enabled {
		var token []byte
		if cfg.Influx.TokenEnv != "" {
			token = []byte(os.Getenv(cfg.Influx.TokenEnv))
		}
		p, err := publish.NewInfluxPublisher(publish.InfluxConfig{
			URL:         cfg.Influx.URL,
			Org:         cfg.Influx.Org,
			Bucket:      cfg.Influx.Bucket,
			Measurement: cfg.Influx.Measurement,
		}, token)
		if err != nil {
			release()
			return nil, nil, err
		}
		pubs = append(pubs, p)
	}

	if cfg.GCS.Enabled {
		p, err := publish.NewGCSPublisher(ctx, publish.GCSConfig{
			Bucket:          cfg.GCS.Bucket,
			Prefix:          cfg.GCS.Prefix,
			CredentialsFile: cfg.GCS.CredentialsFile,
			Endpoint:        cfg.GCS.Endpoint,
		})
		if err != nil {
			release()
			return nil, nil, err
		}
		pubs = append(pubs, p)
		closers = append(closers, p.Close)
	}

	return pubs, release, nil
}

// publishSet sends set to every enabled destination. With none enabled it
// does nothing.
func publishSet(ctx context.Context, cfg config.PublishConfig, set results.Set, logger *logging.Logger) error {
	pubs, done, err := buildPublishers(ctx, cfg)
	if err != nil {
		return err
	}
	defer done()

	if len(pubs) == 0 {
		return nil
	}
	return publish.All(ctx, logger.Slog(), set, pubs...)
}

func runPublish(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if !cfg.Publish.Influx.Enabled && !cfg.Publish.GCS.Enabled {
		return errNoPublishers
	}

	logger, err := newLogger(cmd, cfg.Logging)
	if err != nil {
		return err
	}
	defer logger.Close()

	return publishFile(cmd.Context(), cfg.Publish, args[0], logger, ux.NewPrinter(cmd.OutOrStdout(), colorMode))
}

// publishFile publishes an existing result file, one set per system. The
// file's modification time stands in for the run start.
func publishFile(ctx context.Context, cfg config.PublishConfig, path string, logger *logging.Logger, out *ux.Printer) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	rows, err := results.ReadFile(path)
	if err != nil {
		return err
	}
	sets, err := results.GroupBySystem(rows, uuid.NewString(), info.ModTime())
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	var errs []error
	for _, set := range sets {
		if err := publishSet(ctx, cfg, set, logger); err != nil {
			out.Error("Publishing %s rows failed", set.System)
			errs = append(errs, err)
			continue
		}
		out.Success("Published %d %s rows as run %s", len(set.Rows), set.System, set.RunID)
	}
	return errors.Join(errs...)
}
