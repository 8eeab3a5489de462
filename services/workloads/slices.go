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
	"runtime"

	"github.com/AleutianAI/AleutianBench/services/bench"
)

// setupSlices returns n slices of length size, each starting at its index
// plus offset and stepping by 17.
func setupSlices(size, n, offset int) [][]int {
	if size < 1 {
		size = 1
	}
	out := make([][]int, n)
	for i := range out {
		base := i + offset
		s := make([]int, size)
		s[0] = base
		for j := 1; j < size; j++ {
			s[j] = base + j*17
		}
		out[i] = s
	}
	return out
}

// SliceCreate times building n single-element slices. Size is ignored.
func SliceCreate(rec bench.Recorder, size, n int) error {
	start := rec.Now()
	out := make([][]int, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, []int{i})
	}
	rec.Observe(start)
	// Keeps the timed allocations from being optimized away.
	runtime.KeepAlive(out)
	return nil
}

// PushByMutation times appending to each of n slices in place.
func PushByMutation(rec bench.Recorder, size, n int) error {
	arrs := setupSlices(size, n, 0)

	start := rec.Now()
	for i := range arrs {
		arrs[i] = append(arrs[i], i)
	}
	rec.Observe(start)

	return checkLens(arrs, max(size, 1)+1)
}

// PushByCopy times replacing each of n slices with a copy one element
// longer.
func PushByCopy(rec bench.Recorder, size, n int) error {
	arrs := setupSlices(size, n, 0)

	start := rec.Now()
	for i, a := range arrs {
		next := make([]int, len(a)+1)
		copy(next, a)
		next[len(a)] = i
		arrs[i] = next
	}
	rec.Observe(start)

	return checkLens(arrs, max(size, 1)+1)
}

// PopByMutation times dropping the last element of each slice in place.
func PopByMutation(rec bench.Recorder, size, n int) error {
	arrs := setupSlices(size, n, 0)

	start := rec.Now()
	for i, a := range arrs {
		arrs[i] = a[:len(a)-1]
	}
	rec.Observe(start)

	return checkLens(arrs, max(size, 1)-1)
}

// PopByCopy times replacing each slice with a copy minus its last element.
func PopByCopy(rec bench.Recorder, size, n int) error {
	arrs := setupSlices(size, n, 0)

	start := rec.Now()
	for i, a := range arrs {
		next := make([]int, len(a)-1)
		copy(next, a)
		arrs[i] = next
	}
	rec.Observe(start)

	return checkLens(arrs, max(size, 1)-1)
}

// Reslice times taking the front half of each slice. Offsets past the
// half produce an empty slice.
func Reslice(rec bench.Recorder, size, n int) error {
	arrs := setupSlices(size, n, 0)

	start := rec.Now()
	for i, a := range arrs {
		lo, hi := i, len(a)/2
		if lo > hi {
			lo = hi
		}
		arrs[i] = a[lo:hi]
	}
	rec.Observe(start)

	runtime.KeepAlive(arrs)
	return nil
}

func checkLens(arrs [][]int, want int) error {
	for i, a := range arrs {
		if len(a) != want {
			return errCheck("slice %d has length %d, want %d", i, len(a), want)
		}
	}
	return nil
}
