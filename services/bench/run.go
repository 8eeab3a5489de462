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
	"sync"
	"time"

	"github.com/google/uuid"
)

// Run owns the trials produced by one benchmark process.
//
// Description:
//
//	Run replaces a process-wide row list. Every engine call receives the
//	Run explicitly and registers finished trials with it, in completion
//	order for sequential trials and in spec order for batches.
//
// Thread Safety: Safe for concurrent use.
type Run struct {
	// ID uniquely identifies this process run in logs and traces.
	ID string

	// System tags every row this run produces (the "sys" column).
	System string

	// StartedAt is when the run was created.
	StartedAt time.Time

	mu     sync.RWMutex
	trials []*Trial
}

// NewRun creates an empty run for the given system tag.
//
// Example:
//
//	run := bench.NewRun("go")
//	_, err := engine.Run(ctx, run, spec)
func NewRun(system string) *Run {
	return &Run{
		ID:        uuid.NewString(),
		System:    system,
		StartedAt: time.Now(),
		trials:    make([]*Trial, 0, 16),
	}
}

// Add registers trials with the run.
func (r *Run) Add(trials ...*Trial) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trials = append(r.trials, trials...)
}

// Trials returns the registered trials in registration order.
func (r *Run) Trials() []*Trial {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Trial, len(r.trials))
	copy(out, r.trials)
	return out
}

// Len returns the number of registered trials.
func (r *Run) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.trials)
}
