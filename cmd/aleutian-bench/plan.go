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

	"github.com/AleutianAI/AleutianBench/cmd/aleutian-bench/config"
	"github.com/AleutianAI/AleutianBench/services/bench"
	"github.com/AleutianAI/AleutianBench/services/workloads"
)

// step is one unit of the run plan: a single trial, or every trial of a
// named batch.
type step struct {
	batch string
	specs []bench.Spec
}

func (s step) label() string {
	if s.batch != "" {
		return fmt.Sprintf("batch %s (%d trials)", s.batch, len(s.specs))
	}
	return s.specs[0].Key()
}

func (s step) execute(ctx context.Context, engine *bench.Engine, run *bench.Run) error {
	if s.batch != "" {
		// The suite has already warmed up.
		_, err := engine.Join(ctx, run, s.specs...)
		return err
	}
	_, err := engine.Run(ctx, run, s.specs[0])
	return err
}

// buildPlan resolves trials against reg.
//
// Trials keep file order. All trials sharing a batch name are gathered into
// one step placed where the first of them appears.
func buildPlan(trials []config.TrialConfig, reg *workloads.Registry) ([]step, error) {
	steps := make([]step, 0, len(trials))
	batchIndex := make(map[string]int)

	for i, tc := range trials {
		spec, err := resolveTrial(tc, reg)
		if err != nil {
			return nil, fmt.Errorf("trial %d (%s): %w", i+1, tc.Workload, err)
		}

		if tc.Batch == "" {
			steps = append(steps, step{specs: []bench.Spec{spec}})
			continue
		}
		if idx, ok := batchIndex[tc.Batch]; ok {
			steps[idx].specs = append(steps[idx].specs, spec)
			continue
		}
		batchIndex[tc.Batch] = len(steps)
		steps = append(steps, step{batch: tc.Batch, specs: []bench.Spec{spec}})
	}
	return steps, nil
}

func resolveTrial(tc config.TrialConfig, reg *workloads.Registry) (bench.Spec, error) {
	w, err := reg.Lookup(tc.Workload)
	if err != nil {
		return bench.Spec{}, err
	}

	spec := w.Spec(tc.Size, tc.Iterations, tc.Budget.Std())
	if tc.Name != "" {
		spec.Name = tc.Name
	}
	if tc.Description != "" {
		spec.Description = tc.Description
	}
	spec.OmitSize = spec.OmitSize || tc.OmitSize

	if err := spec.Validate(); err != nil {
		return bench.Spec{}, err
	}
	return spec, nil
}
