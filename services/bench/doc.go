// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package bench drives timed workload loops and records latency samples.
//
// # Overview
//
// A benchmark process creates one Run, then asks an Engine to execute
// trials against it. Each trial repeatedly invokes a workload until its
// time budget is exhausted. The workload appends one elapsed-time sample
// per invocation through a Recorder. Finished trials are registered with
// the Run and later reduced and serialized by the results package.
//
// # Architecture
//
//	┌──────────┐  Spec   ┌──────────────┐  Recorder  ┌────────────┐
//	│  caller  │────────▶│    Engine    │───────────▶│  workload  │
//	└──────────┘         │ • Warmup     │◀───────────│ (external) │
//	                     │ • Run        │   sample   └────────────┘
//	                     │ • Batch      │
//	                     └──────┬───────┘
//	                            │ sealed *Trial
//	                            ▼
//	                     ┌──────────────┐
//	                     │     Run      │──▶ results.Rows ──▶ CSV
//	                     └──────────────┘
//
// # Loop Semantics
//
// The loop is a do-while: the workload runs at least once even when the
// budget is zero, and the budget is checked only between invocations. A
// long invocation is never interrupted.
//
// # Batches
//
// Batch warms up once, fans its members out on an errgroup and joins on
// all of them. If any member fails, no member is registered. Join does the
// same without the warmup, for callers that already warmed up.
//
// # Thread Safety
//
// Engine and Run are safe for concurrent use. A Trial is written only by
// the loop that owns it.
package bench
