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
	"context"
	"fmt"

	"github.com/AleutianAI/AleutianBench/services/bench"
)

// Assignment maps the letters of SEND+MORE=MONEY to digits.
type Assignment struct {
	S, E, N, D, M, O, R, Y int
}

// Words returns the three operands as numbers.
func (a Assignment) Words() (send, more, money int) {
	send = a.S*1000 + a.E*100 + a.N*10 + a.D
	more = a.M*1000 + a.O*100 + a.R*10 + a.E
	money = a.M*10000 + a.O*1000 + a.N*100 + a.E*10 + a.Y
	return send, more, money
}

// Valid reports whether the assignment solves the puzzle.
func (a Assignment) Valid() bool {
	digits := [8]int{a.S, a.E, a.N, a.D, a.M, a.O, a.R, a.Y}
	var seen [10]bool
	for _, d := range digits {
		if d < 0 || d > 9 || seen[d] {
			return false
		}
		seen[d] = true
	}
	if a.S == 0 || a.M == 0 {
		return false
	}
	send, more, money := a.Words()
	return send+more == money
}

// SolveSendMoreMoney searches all digit assignments for the unique
// solution of SEND+MORE=MONEY.
func SolveSendMoreMoney() (Assignment, bool) {
	var d [8]int
	var used [10]bool
	var found Assignment
	var ok bool

	var search func(pos int) bool
	search = func(pos int) bool {
		if pos == len(d) {
			a := Assignment{S: d[0], E: d[1], N: d[2], D: d[3], M: d[4], O: d[5], R: d[6], Y: d[7]}
			if a.S == 0 || a.M == 0 {
				return false
			}
			send, more, money := a.Words()
			if send+more == money {
				found, ok = a, true
				return true
			}
			return false
		}
		for v := 0; v <= 9; v++ {
			if used[v] {
				continue
			}
			used[v] = true
			d[pos] = v
			if search(pos + 1) {
				return true
			}
			used[v] = false
		}
		return false
	}
	search(0)
	return found, ok
}

// SendMoreMoney times solving the puzzle iterations times, each solve
// running on its own goroutine while the caller waits for the result.
// Size is ignored.
func SendMoreMoney(ctx context.Context, rec bench.Recorder, _, iterations int) error {
	iterations = max(iterations, 1)

	start := rec.Now()
	var last Assignment
	for i := 0; i < iterations; i++ {
		done := make(chan Assignment, 1)
		go func() {
			a, ok := SolveSendMoreMoney()
			if !ok {
				a = Assignment{}
			}
			done <- a
		}()

		select {
		case <-ctx.Done():
			return fmt.Errorf("solving send_more_money: %w", ctx.Err())
		case last = <-done:
		}
	}
	rec.Observe(start)

	if !last.Valid() {
		return errCheck("no solution found")
	}
	send, more, money := last.Words()
	if send != 9567 || more != 1085 || money != 10652 {
		return errCheck("unexpected solution %d + %d = %d", send, more, money)
	}
	return nil
}
