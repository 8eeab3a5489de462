// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package results

import (
	"errors"
	"time"

	"github.com/AleutianAI/AleutianBench/services/bench"
)

// Set is the rows of one run together with the run's identity. It is the
// unit that is archived and published.
type Set struct {
	RunID     string    `json:"run_id"`
	System    string    `json:"system"`
	StartedAt time.Time `json:"started_at"`
	Rows      []Row     `json:"rows"`
}

// NewSet converts run into a Set.
func NewSet(run *bench.Run) (Set, error) {
	rows, err := Rows(run)
	if err != nil {
		return Set{}, err
	}
	return Set{
		RunID:     run.ID,
		System:    run.System,
		StartedAt: run.StartedAt,
		Rows:      rows,
	}, nil
}

// GroupBySystem splits rows read from a file into one Set per system, in
// order of first appearance. Every Set gets runID and startedAt.
func GroupBySystem(rows []Row, runID string, startedAt time.Time) ([]Set, error) {
	if len(rows) == 0 {
		return nil, errors.New("no rows to group")
	}
	index := make(map[string]int)
	var sets []Set
	for _, r := range rows {
		i, ok := index[r.System]
		if !ok {
			i = len(sets)
			index[r.System] = i
			sets = append(sets, Set{RunID: runID, System: r.System, StartedAt: startedAt})
		}
		sets[i].Rows = append(sets[i].Rows, r)
	}
	return sets, nil
}
