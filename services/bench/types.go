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
	"errors"
	"sync"
	"time"

	"github.com/AleutianAI/AleutianBench/services/bench/stats"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrWorkloadFailed indicates that a workload invocation returned an error.
	ErrWorkloadFailed = errors.New("workload failed")

	// ErrWorkloadPanic indicates that a workload invocation panicked.
	ErrWorkloadPanic = errors.New("workload panicked")

	// ErrSampleContract indicates that an invocation did not append exactly
	// one sample.
	ErrSampleContract = errors.New("workload must record exactly one sample per invocation")

	// ErrBatchFailed indicates that at least one member of a batch failed.
	ErrBatchFailed = errors.New("batch failed")

	// ErrInvalidSpec indicates an invalid trial specification.
	ErrInvalidSpec = errors.New("invalid trial spec")

	// ErrNilRun indicates that no Run was supplied to register trials with.
	ErrNilRun = errors.New("run must not be nil")
)

// -----------------------------------------------------------------------------
// Clock
// -----------------------------------------------------------------------------

// Clock is the time source used for all timing.
//
// Implementations must be monotonic. SystemClock relies on the monotonic
// reading carried by time.Time.
type Clock interface {
	Now() time.Time
	Since(t time.Time) time.Duration
}

// SystemClock reads the process clock.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time { return time.Now() }

// Since returns the elapsed time since t.
func (SystemClock) Since(t time.Time) time.Duration { return time.Since(t) }

// Micros converts a duration to fractional microseconds.
func Micros(d time.Duration) float64 {
	return float64(d) / float64(time.Microsecond)
}

// -----------------------------------------------------------------------------
// Trial
// -----------------------------------------------------------------------------

// Recorder is the append-only handle a workload receives.
//
// Description:
//
//	A workload measures the part of its invocation it wants timed and
//	records exactly one sample before returning. Recorder exposes the
//	engine clock so workloads and the engine agree on time.
//
// Example:
//
//	func pushByMutation(rec bench.Recorder, size, n int) error {
//	    arrs := setup(size, n)
//	    start := rec.Now()
//	    for i := range arrs {
//	        arrs[i] = append(arrs[i], i)
//	    }
//	    rec.Observe(start)
//	    return nil
//	}
type Recorder interface {
	// Now returns the current time on the engine clock.
	Now() time.Time

	// Observe records the elapsed time since start and returns it in
	// microseconds.
	Observe(start time.Time) float64

	// Record appends a raw sample in microseconds. Negative values are
	// recorded as zero.
	Record(micros float64)
}

// Trial accumulates the samples of one named benchmark execution.
//
// Description:
//
//	A Trial is created by the engine at the start of a loop, receives
//	samples while the loop runs and is sealed when the loop ends. Samples
//	recorded after sealing are dropped. Key and description are fixed at
//	creation.
//
// Thread Safety: Safe for concurrent use.
type Trial struct {
	key         string
	description string
	clock       Clock

	mu      sync.Mutex
	samples []float64
	sealed  bool
}

// NewTrial creates an unsealed trial using the system clock.
func NewTrial(key, description string) *Trial {
	return newTrial(key, description, SystemClock{})
}

func newTrial(key, description string, clock Clock) *Trial {
	return &Trial{
		key:         key,
		description: description,
		clock:       clock,
		samples:     make([]float64, 0, 64),
	}
}

// Key returns the trial identifier.
func (t *Trial) Key() string { return t.key }

// Description returns the implementation variant label.
func (t *Trial) Description() string { return t.description }

// Samples returns a copy of the recorded samples in completion order.
func (t *Trial) Samples() []float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]float64, len(t.samples))
	copy(out, t.samples)
	return out
}

// Len returns the number of recorded samples.
func (t *Trial) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.samples)
}

// Sealed reports whether the trial's loop has finished.
func (t *Trial) Sealed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sealed
}

// Summary reduces the recorded samples.
//
// Outputs:
//   - stats.Summary: The reduced statistics.
//   - error: stats.ErrNoSamples if nothing was recorded.
func (t *Trial) Summary() (stats.Summary, error) {
	return stats.Summarize(t.Samples())
}

// Recorder returns the append-only handle for this trial.
func (t *Trial) Recorder() Recorder {
	return trialRecorder{t: t}
}

// Seal stops the trial from accepting samples.
func (t *Trial) Seal() {
	t.mu.Lock()
	t.sealed = true
	t.mu.Unlock()
}

// last returns the most recent sample, or zero if there is none.
func (t *Trial) last() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.samples) == 0 {
		return 0
	}
	return t.samples[len(t.samples)-1]
}

func (t *Trial) append(v float64) {
	if v < 0 {
		v = 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sealed {
		return
	}
	t.samples = append(t.samples, v)
}

// trialRecorder hides the Trial behind the Recorder interface so workloads
// cannot reach its identity fields.
type trialRecorder struct {
	t *Trial
}

func (r trialRecorder) Now() time.Time { return r.t.clock.Now() }

func (r trialRecorder) Observe(start time.Time) float64 {
	us := Micros(r.t.clock.Since(start))
	r.t.append(us)
	return us
}

func (r trialRecorder) Record(micros float64) { r.t.append(micros) }
