// Today Watch - Local Video Recommendation and Queue Planning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/todaywatch

// Package todaywatch implements the "Today Watch" recommendation core: a
// local, single-pass pipeline that ranks candidate videos from watch history,
// persisted creator-affinity signals and negative feedback, then assembles a
// bounded, creator-diverse viewing queue.
//
// # Pipeline
//
//   - Creator Affinity Aggregator: history + persisted signals -> per-creator affinity
//   - Candidate Scorer: popularity, affinity, freshness, mode fit, night fit, feedback
//   - Explanation Builder: short human-readable tag line per candidate
//   - Diverse Queue Assembler: greedy selection with anti-repetition adjustments
//   - Queue Consumption Policy: trims a Plan and decides whether a refill is due
//
// # Usage
//
//	plan := todaywatch.BuildPlan(todaywatch.BuildInput{
//	    History:     history,
//	    Candidates:  candidates,
//	    Mode:        todaywatch.ModeRelax,
//	    Now:         time.Now(),
//	    UpRankLimit: 5,
//	    QueueLimit:  20,
//	})
//
//	updated, applied, refill := todaywatch.Consume(plan, "BV1xx", 6)
//
// # Determinism
//
// Every function in this package is pure. There is no package-level mutable
// state, no I/O and no wall-clock access: the caller passes the current time
// in BuildInput.Now. Iteration never depends on map order, so identical inputs
// always produce an identical Plan.
//
// # Thread Safety
//
// All functions are safe for concurrent use. A Plan is a value; Consume
// returns a copy and never mutates its argument.
package todaywatch
