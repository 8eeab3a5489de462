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
	"encoding/json"
	"testing"
	"time"

	"github.com/AleutianAI/AleutianBench/services/bench"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSet(t *testing.T) {
	run := bench.NewRun("go")
	run.Add(trialWith("a_1", "x", 1, 3))

	set, err := NewSet(run)
	require.NoError(t, err)
	assert.Equal(t, run.ID, set.RunID)
	assert.Equal(t, "go", set.System)
	assert.Equal(t, run.StartedAt, set.StartedAt)
	require.Len(t, set.Rows, 1)
	assert.Equal(t, 2, set.Rows[0].Runs)

	_, err = NewSet(nil)
	assert.ErrorIs(t, err, bench.ErrNilRun)
}

func TestGroupBySystem(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	rows := []Row{
		{Key: "a", System: "wasm"},
		{Key: "a", System: "go"},
		{Key: "b", System: "wasm"},
	}

	sets, err := GroupBySystem(rows, "r1", at)
	require.NoError(t, err)
	require.Len(t, sets, 2)

	assert.Equal(t, "wasm", sets[0].System)
	assert.Len(t, sets[0].Rows, 2)
	assert.Equal(t, "go", sets[1].System)
	assert.Equal(t, "r1", sets[1].RunID)
	assert.Equal(t, at, sets[1].StartedAt)

	_, err = GroupBySystem(nil, "r1", at)
	assert.Error(t, err)
}

func TestRow_JSON(t *testing.T) {
	data, err := json.Marshal(Row{Key: "k", System: "go", Description: "d", Runs: 1, Median: 2.5})
	require.NoError(t, err)
	assert.JSONEq(t, `{"key":"k","sys":"go","desc":"d","runs":1,"minimum":0,"maximum":0,"mean":0,"median":2.5}`, string(data))
}
