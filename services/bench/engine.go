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
	"strconv"
	"time"

	"github.com/AleutianAI/AleutianBench/services/bench/telemetry"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "aleutian.bench"

var specValidate = validator.New()

// -----------------------------------------------------------------------------
// Spec
// -----------------------------------------------------------------------------

// BlockingFunc is a workload that completes on the calling goroutine.
type BlockingFunc func(rec Recorder, size, iterations int) error

// SuspendingFunc is a workload that waits internally for its computation
// to settle, for example on a channel fed by another goroutine.
type SuspendingFunc func(ctx context.Context, rec Recorder, size, iterations int) error

// Mode distinguishes blocking from suspending workloads.
type Mode int

const (
	// ModeBlocking runs the workload synchronously and never consults the
	// context inside the loop.
	ModeBlocking Mode = iota

	// ModeSuspending passes the context to the workload and stops the loop
	// early if the context is done.
	ModeSuspending
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeBlocking:
		return "blocking"
	case ModeSuspending:
		return "suspending"
	default:
		return "unknown"
	}
}

// Spec describes one trial.
//
// Exactly one of Blocking and Suspending must be set.
type Spec struct {
	// Name is the base of the trial key.
	Name string `validate:"required"`

	// Description labels the implementation variant under test.
	Description string

	// Size is the workload size parameter.
	Size int `validate:"gte=0"`

	// OmitSize leaves Size out of the key for workloads without one.
	OmitSize bool

	// Iterations is the workload iteration parameter.
	Iterations int `validate:"gte=0"`

	// Budget is how long the loop keeps starting new invocations.
	Budget time.Duration `validate:"gte=0"`

	Blocking   BlockingFunc
	Suspending SuspendingFunc
}

// Key returns name_size_iterations, or name_iterations when OmitSize is set.
func (s Spec) Key() string {
	if s.OmitSize {
		return s.Name + "_" + strconv.Itoa(s.Iterations)
	}
	return s.Name + "_" + strconv.Itoa(s.Size) + "_" + strconv.Itoa(s.Iterations)
}

// Mode reports how the workload is invoked.
func (s Spec) Mode() Mode {
	if s.Suspending != nil {
		return ModeSuspending
	}
	return ModeBlocking
}

// Validate checks the spec fields and the workload mode.
func (s Spec) Validate() error {
	if err := specValidate.Struct(s); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidSpec, s.Name, err)
	}
	switch {
	case s.Blocking == nil && s.Suspending == nil:
		return fmt.Errorf("%w: %s: no workload set", ErrInvalidSpec, s.Name)
	case s.Blocking != nil && s.Suspending != nil:
		return fmt.Errorf("%w: %s: both blocking and suspending workloads set", ErrInvalidSpec, s.Name)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Engine
// -----------------------------------------------------------------------------

// Config holds engine configuration.
type Config struct {
	// Warmup is the unmeasured delay before a batch or suite.
	// Default: 500ms
	Warmup time.Duration

	// BatchConcurrency caps how many batch members run at once.
	// Zero means no limit; one serializes the members.
	// Default: 0
	BatchConcurrency int
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Warmup:           500 * time.Millisecond,
		BatchConcurrency: 0,
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Warmup < 0 {
		return errors.New("warmup must be non-negative")
	}
	if c.BatchConcurrency < 0 {
		return errors.New("batch concurrency must be non-negative")
	}
	return nil
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the time source. Tests use it to control budgets.
func WithClock(c Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithLogger sets the engine logger. Nil values are ignored.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithWarmup sets the warmup delay. Negative values are ignored.
func WithWarmup(d time.Duration) Option {
	return func(e *Engine) {
		if d >= 0 {
			e.config.Warmup = d
		}
	}
}

// WithBatchConcurrency caps concurrent batch members. Negative values are
// ignored.
func WithBatchConcurrency(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.config.BatchConcurrency = n
		}
	}
}

// Engine executes trials.
//
// Description:
//
//	Engine owns the warmup delay, the timed do-while loop for blocking and
//	suspending workloads, and batch fan-out. It holds no per-run state;
//	finished trials are registered with the Run passed to each call.
//
// Thread Safety: Safe for concurrent use.
type Engine struct {
	config *Config
	clock  Clock
	logger *slog.Logger
}

// NewEngine creates an engine with DefaultConfig and the given options.
//
// Example:
//
//	engine := bench.NewEngine(
//	    bench.WithWarmup(time.Second),
//	    bench.WithLogger(logger.Slog()),
//	)
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		config: DefaultConfig(),
		clock:  SystemClock{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	return *e.config
}

// Warmup waits for the configured warmup delay.
//
// Description:
//
//	The delay does no work and produces no trial. It gives the runtime a
//	moment to settle before timing begins. Only context cancellation cuts
//	it short.
//
// Outputs:
//   - error: Non-nil if ctx is done before the delay elapses.
func (e *Engine) Warmup(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context must not be nil")
	}
	if e.config.Warmup <= 0 {
		return nil
	}

	e.logger.Debug("warming up", slog.Duration("delay", e.config.Warmup))

	timer := time.NewTimer(e.config.Warmup)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("warmup interrupted: %w", ctx.Err())
	case <-timer.C:
	}
	return nil
}

// Run executes one trial and registers it with run.
//
// Description:
//
//	Builds the trial key from the spec, then invokes the workload in a
//	do-while loop until the budget is spent. The workload runs at least
//	once even with a zero budget. The trial is registered only if every
//	invocation succeeded.
//
// Inputs:
//   - ctx: Context passed to suspending workloads. Must not be nil.
//   - run: The run that receives the finished trial. Must not be nil.
//   - spec: The trial description.
//
// Outputs:
//   - *Trial: The sealed trial. Nil on error.
//   - error: ErrInvalidSpec, or an error wrapping ErrWorkloadFailed.
//
// Thread Safety: Safe for concurrent use.
//
// Example:
//
//	trial, err := engine.Run(ctx, run, bench.Spec{
//	    Name:       "plain_arr_push",
//	    Size:       10,
//	    Iterations: 1000,
//	    Budget:     time.Second,
//	    Blocking:   workloads.PushByMutation,
//	})
func (e *Engine) Run(ctx context.Context, run *Run, spec Spec) (*Trial, error) {
	if ctx == nil {
		return nil, errors.New("context must not be nil")
	}
	if run == nil {
		return nil, ErrNilRun
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	trial, err := e.execute(ctx, spec)
	if err != nil {
		return nil, err
	}
	run.Add(trial)
	return trial, nil
}

// execute runs the loop for a validated spec and returns the sealed trial.
func (e *Engine) execute(ctx context.Context, spec Spec) (*Trial, error) {
	key := spec.Key()
	mode := spec.Mode()

	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "bench.Engine.Run",
		trace.WithAttributes(
			attribute.String("bench.key", key),
			attribute.String("bench.description", spec.Description),
			attribute.String("bench.mode", mode.String()),
			attribute.Int("bench.size", spec.Size),
			attribute.Int("bench.iterations", spec.Iterations),
			attribute.Int64("bench.budget_ms", spec.Budget.Milliseconds()),
		),
	)
	defer span.End()

	logger := telemetry.LoggerWithTrace(ctx, e.logger)

	trial := newTrial(key, spec.Description, e.clock)
	defer trial.Seal()

	logger.Debug("trial started",
		slog.String("key", key),
		slog.String("description", spec.Description),
		slog.String("mode", mode.String()),
	)

	start := e.clock.Now()
	for {
		err := e.invoke(ctx, spec, trial)
		if err != nil {
			recordTrial(ctx, key, "failed")
			span.RecordError(err)
			span.SetStatus(codes.Error, "workload failed")
			logger.Warn("trial failed",
				slog.String("key", key),
				slog.Int("completed", trial.Len()),
				slog.String("error", err.Error()),
			)
			return nil, fmt.Errorf("%w: trial %s: %w", ErrWorkloadFailed, key, err)
		}
		recordInvocation(ctx, key, mode, trial.last())

		if e.clock.Since(start) >= spec.Budget {
			break
		}
		if mode == ModeSuspending && ctx.Err() != nil {
			recordTrial(ctx, key, "interrupted")
			span.SetStatus(codes.Error, "interrupted")
			return nil, fmt.Errorf("trial %s interrupted: %w", key, ctx.Err())
		}
	}
	elapsed := e.clock.Since(start)

	recordTrial(ctx, key, "ok")
	span.SetAttributes(
		attribute.Int("bench.result.samples", trial.Len()),
		attribute.Int64("bench.result.elapsed_ms", elapsed.Milliseconds()),
	)
	span.SetStatus(codes.Ok, "trial completed")

	logger.Info("trial completed",
		slog.String("key", key),
		slog.String("description", spec.Description),
		slog.Int("samples", trial.Len()),
		slog.Duration("elapsed", elapsed),
	)
	return trial, nil
}

// invoke calls the workload once and checks that it recorded one sample.
func (e *Engine) invoke(ctx context.Context, spec Spec, trial *Trial) (err error) {
	before := trial.Len()

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrWorkloadPanic, p)
		}
	}()

	rec := trial.Recorder()
	if spec.Suspending != nil {
		err = spec.Suspending(ctx, rec, spec.Size, spec.Iterations)
	} else {
		err = spec.Blocking(rec, spec.Size, spec.Iterations)
	}
	if err != nil {
		return err
	}

	if n := trial.Len() - before; n != 1 {
		return fmt.Errorf("%w: got %d", ErrSampleContract, n)
	}
	return nil
}
