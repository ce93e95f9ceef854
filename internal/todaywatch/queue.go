// Today Watch - Local Video Recommendation and Queue Planning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/todaywatch

package todaywatch

import "math"

// Anti-repetition adjustments applied during queue assembly.
const (
	SameCreatorConsecutivePenalty = 1.15
	CreatorRepeatPenalty          = 0.75
	CreatorNoveltyBonus           = 0.35
)

// AssembleQueue greedily selects up to limit candidates from scored, which
// must be sorted by score descending. At each slot it picks the remaining
// candidate with the highest adjusted score:
//
//	score - 1.15 [same creator as previous pick]
//	      - 0.75 * times this creator was already picked
//	      + 0.35 [creator not yet picked]
//
// The consecutive penalty and novelty bonus only apply to creator ids > 0.
// Ties keep the earliest candidate in the remaining pool.
//
// This is a greedy approximation; it does not search for a globally optimal
// ordering.
func AssembleQueue(scored []ScoredCandidate, limit int) []CandidateItem {
	if len(scored) == 0 || limit <= 0 {
		return []CandidateItem{}
	}

	remaining := make([]*ScoredCandidate, len(scored))
	for i := range scored {
		remaining[i] = &scored[i]
	}

	queue := make([]CandidateItem, 0, min(limit, len(scored)))
	usedCount := make(map[int64]int)
	var lastCreator int64
	hasLast := false

	for len(queue) < limit && len(remaining) > 0 {
		bestIdx := 0
		bestScore := math.Inf(-1)

		for i, cand := range remaining {
			mid := cand.Item.CreatorID
			used := usedCount[mid]

			adjusted := cand.Score - float64(used)*CreatorRepeatPenalty
			if mid > 0 && hasLast && lastCreator == mid {
				adjusted -= SameCreatorConsecutivePenalty
			}
			if mid > 0 && used == 0 {
				adjusted += CreatorNoveltyBonus
			}

			if adjusted > bestScore {
				bestScore = adjusted
				bestIdx = i
			}
		}

		picked := remaining[bestIdx]
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)

		queue = append(queue, picked.Item)
		usedCount[picked.Item.CreatorID]++
		lastCreator = picked.Item.CreatorID
		hasLast = true
	}

	return queue
}
