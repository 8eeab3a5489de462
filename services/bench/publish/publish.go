// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package publish ships finished result sets to external stores.
package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/AleutianAI/AleutianBench/services/bench/results"
	"golang.org/x/sync/errgroup"
)

// ErrEmptySet is returned when a set without rows is published.
var ErrEmptySet = errors.New("result set has no rows")

// Publisher ships a result set to one destination.
type Publisher interface {
	// Name identifies the destination in logs and errors.
	Name() string

	// Publish sends set. It must not modify set.
	Publish(ctx context.Context, set results.Set) error
}

// All publishes set to every publisher concurrently.
//
// Every publisher is attempted even if another fails. The returned error
// joins the failures, each prefixed with the publisher name.
func All(ctx context.Context, logger *slog.Logger, set results.Set, pubs ...Publisher) error {
	if logger == nil {
		logger = slog.Default()
	}
	if len(set.Rows) == 0 {
		return ErrEmptySet
	}

	errs := make([]error, len(pubs))
	var g errgroup.Group
	for i, p := range pubs {
		g.Go(func() error {
			if err := p.Publish(ctx, set); err != nil {
				logger.Warn("publish failed",
					slog.String("publisher", p.Name()),
					slog.String("run_id", set.RunID),
					slog.String("error", err.Error()))
				errs[i] = fmt.Errorf("%s: %w", p.Name(), err)
				return nil
			}
			logger.Info("results published",
				slog.String("publisher", p.Name()),
				slog.String("run_id", set.RunID),
				slog.Int("rows", len(set.Rows)))
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}
