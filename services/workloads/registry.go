// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package workloads provides reference benchmark workloads and a registry
// that maps configuration names to them.
package workloads

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/AleutianAI/AleutianBench/services/bench"
)

var (
	// ErrNotFound is returned when a workload is not in the registry.
	ErrNotFound = errors.New("workload not found")

	// ErrAlreadyRegistered is returned when attempting to register a duplicate ID.
	ErrAlreadyRegistered = errors.New("workload already registered")

	// ErrInvalidWorkload is returned for a workload without an ID or with
	// other than exactly one function set.
	ErrInvalidWorkload = errors.New("invalid workload")

	// ErrCheckFailed is returned by a workload whose result fails its
	// self-check.
	ErrCheckFailed = errors.New("workload self-check failed")
)

// Workload is a registered benchmark function.
type Workload struct {
	// ID is the registry key, for example "arr_push_copy".
	ID string

	// Name is the trial name. Variants of one operation share it.
	Name string

	// Description distinguishes variants with the same Name.
	Description string

	// OmitSize marks workloads that ignore the size parameter.
	OmitSize bool

	Blocking   bench.BlockingFunc
	Suspending bench.SuspendingFunc
}

// Spec builds an engine spec for the workload.
func (w Workload) Spec(size, iterations int, budget time.Duration) bench.Spec {
	return bench.Spec{
		Name:        w.Name,
		Description: w.Description,
		Size:        size,
		OmitSize:    w.OmitSize,
		Iterations:  iterations,
		Budget:      budget,
		Blocking:    w.Blocking,
		Suspending:  w.Suspending,
	}
}

func (w Workload) validate() error {
	if w.ID == "" || w.Name == "" {
		return fmt.Errorf("%w: id and name are required", ErrInvalidWorkload)
	}
	if (w.Blocking == nil) == (w.Suspending == nil) {
		return fmt.Errorf("%w: %s: exactly one function must be set", ErrInvalidWorkload, w.ID)
	}
	return nil
}

// Registry maps workload IDs to workloads.
//
// Thread Safety: Safe for concurrent use via read-write mutex.
type Registry struct {
	mu        sync.RWMutex
	workloads map[string]Workload
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{workloads: make(map[string]Workload)}
}

// Register adds a workload under its ID.
//
// Outputs:
//   - error: ErrInvalidWorkload, or ErrAlreadyRegistered if the ID is taken.
func (r *Registry) Register(w Workload) error {
	if err := w.validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.workloads[w.ID]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, w.ID)
	}
	r.workloads[w.ID] = w
	return nil
}

// MustRegister registers a workload and panics on error. Use it only while
// building a registry at startup.
func (r *Registry) MustRegister(w Workload) {
	if err := r.Register(w); err != nil {
		panic(fmt.Sprintf("workloads: failed to register %s: %v", w.ID, err))
	}
}

// Unregister removes a workload.
func (r *Registry) Unregister(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.workloads[id]; !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(r.workloads, id)
	return nil
}

// Get retrieves a workload by ID.
func (r *Registry) Get(id string) (Workload, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	w, ok := r.workloads[id]
	return w, ok
}

// Lookup is Get with an ErrNotFound error for unknown IDs.
func (r *Registry) Lookup(id string) (Workload, error) {
	w, ok := r.Get(id)
	if !ok {
		return Workload{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return w, nil
}

// List returns the sorted workload IDs.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.workloads))
	for id := range r.workloads {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Count returns the number of registered workloads.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.workloads)
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the shared registry holding the reference workloads.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry()
		for _, w := range reference() {
			defaultRegistry.MustRegister(w)
		}
	})
	return defaultRegistry
}

func reference() []Workload {
	return []Workload{
		{ID: "arr_create", Name: "arr_create", Description: "plain", Blocking: SliceCreate},
		{ID: "arr_push_mutation", Name: "arr_push", Description: "mutation", Blocking: PushByMutation},
		{ID: "arr_push_copy", Name: "arr_push", Description: "copy", Blocking: PushByCopy},
		{ID: "arr_pop_mutation", Name: "arr_pop", Description: "mutation", Blocking: PopByMutation},
		{ID: "arr_pop_copy", Name: "arr_pop", Description: "copy", Blocking: PopByCopy},
		{ID: "arr_slice", Name: "arr_slice", Description: "reslice", Blocking: Reslice},
		{ID: "record_set_mutation", Name: "record_set", Description: "mutation", Blocking: SetByMutation},
		{ID: "record_set_copy", Name: "record_set", Description: "copy", Blocking: SetByCopy},
		{ID: "send_more_money", Name: "send_more_money", Description: "goroutine", OmitSize: true, Suspending: SendMoreMoney},
	}
}
