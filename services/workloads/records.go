// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package workloads

import (
	"fmt"
	"strconv"

	"github.com/AleutianAI/AleutianBench/services/bench"
)

type record struct {
	ID    int
	Name  string
	Score int
	Tags  []string
}

func setupRecords(size, n int) []*record {
	out := make([]*record, n)
	for i := range out {
		tags := make([]string, max(size, 0))
		for j := range tags {
			tags[j] = "t" + strconv.Itoa(j)
		}
		out[i] = &record{ID: i, Name: "r" + strconv.Itoa(i), Tags: tags}
	}
	return out
}

// SetByMutation times updating one field of each of n records in place.
// Size is the number of tags carried by each record.
func SetByMutation(rec bench.Recorder, size, n int) error {
	recs := setupRecords(size, n)

	start := rec.Now()
	for i, r := range recs {
		r.Score = i
	}
	rec.Observe(start)

	return checkScores(recs)
}

// SetByCopy times replacing each record with an updated copy, leaving the
// original untouched.
func SetByCopy(rec bench.Recorder, size, n int) error {
	recs := setupRecords(size, n)
	orig := make([]*record, len(recs))
	copy(orig, recs)

	start := rec.Now()
	for i, r := range recs {
		next := *r
		next.Tags = append([]string(nil), r.Tags...)
		next.Score = i
		recs[i] = &next
	}
	rec.Observe(start)

	for i, r := range orig {
		if r.Score != 0 {
			return errCheck("record %d was modified in place", i)
		}
	}
	return checkScores(recs)
}

func checkScores(recs []*record) error {
	for i, r := range recs {
		if r.Score != i {
			return errCheck("record %d has score %d", i, r.Score)
		}
	}
	return nil
}

func errCheck(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCheckFailed, fmt.Sprintf(format, args...))
}
