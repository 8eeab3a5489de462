// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package bench

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Batch runs independent trials together and joins on all of them.
//
// Description:
//
//	Validates every spec, waits for the warmup delay once, then starts each
//	member on an errgroup goroutine. Batch returns only after every member
//	has finished. The policy is fail-fast: if any member fails, the group
//	context is cancelled so suspending members stop early, the first error
//	is returned and no member is registered with run. On success members
//	are registered in spec order.
//
// Inputs:
//   - ctx: Context for the batch. Must not be nil.
//   - run: The run that receives the trials. Must not be nil.
//   - specs: Member trials. An empty batch is a no-op.
//
// Outputs:
//   - []*Trial: Sealed member trials in spec order. Nil on error.
//   - error: ErrInvalidSpec, a warmup error, or an error wrapping
//     ErrBatchFailed.
//
// Thread Safety: Safe for concurrent use.
//
// Example:
//
//	trials, err := engine.Batch(ctx, run,
//	    bench.Spec{Name: "manners", Size: 16, Iterations: 1, Budget: time.Second, Suspending: solveA},
//	    bench.Spec{Name: "manners", Size: 32, Iterations: 1, Budget: time.Second, Suspending: solveB},
//	)
func (e *Engine) Batch(ctx context.Context, run *Run, specs ...Spec) ([]*Trial, error) {
	return e.batch(ctx, run, true, specs)
}

// Join runs a batch like Batch but skips the warmup delay. Use it when the
// caller has already waited for Engine.Warmup, as a suite runner does once
// before its first trial.
func (e *Engine) Join(ctx context.Context, run *Run, specs ...Spec) ([]*Trial, error) {
	return e.batch(ctx, run, false, specs)
}

func (e *Engine) batch(ctx context.Context, run *Run, warm bool, specs []Spec) ([]*Trial, error) {
	if ctx == nil {
		return nil, errors.New("context must not be nil")
	}
	if run == nil {
		return nil, ErrNilRun
	}
	if len(specs) == 0 {
		return nil, nil
	}

	keys := make([]string, len(specs))
	for i, spec := range specs {
		if err := spec.Validate(); err != nil {
			return nil, err
		}
		keys[i] = spec.Key()
	}

	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "bench.Engine.Batch",
		trace.WithAttributes(
			attribute.StringSlice("bench.keys", keys),
			attribute.Int("bench.concurrency", e.config.BatchConcurrency),
			attribute.Bool("bench.warmup", warm),
		),
	)
	defer span.End()

	if warm {
		if err := e.Warmup(ctx); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "warmup failed")
			return nil, fmt.Errorf("running warmup: %w", err)
		}
	}

	trials := make([]*Trial, len(specs))
	g, gctx := errgroup.WithContext(ctx)
	if e.config.BatchConcurrency > 0 {
		g.SetLimit(e.config.BatchConcurrency)
	}

	for i, spec := range specs {
		g.Go(func() error {
			trial, err := e.execute(gctx, spec)
			if err != nil {
				return err
			}
			trials[i] = trial
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "batch failed")
		e.logger.Warn("batch failed, discarding members",
			slog.Int("members", len(specs)),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: %w", ErrBatchFailed, err)
	}

	run.Add(trials...)
	span.SetStatus(codes.Ok, "batch completed")
	return trials, nil
}
