// Today Watch - Local Video Recommendation and Queue Planning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/todaywatch

package todaywatch

import (
	"sort"
	"strings"
)

// Hard bounds applied to caller-supplied limits.
const (
	MinUpRankLimit = 1
	MaxUpRankLimit = 20
	MinQueueLimit  = 1
	MaxQueueLimit  = 60
)

// BuildPlan runs the full pipeline: history cleanup, affinity aggregation,
// candidate filtering, scoring, explanation, creator ranking and diverse
// queue assembly.
//
// Empty or fully filtered inputs yield an empty Plan, never an error.
// GeneratedAt is in.Now, so identical inputs produce identical plans.
//
//nolint:gocritic // BuildInput passed by value, it is an argument bundle
func BuildPlan(in BuildInput) Plan {
	mode := normalizeMode(in.Mode)
	history := CleanHistory(in.History)
	affinity := AggregateAffinity(history, in.CreatorSignals, in.Now)
	scored := scoreCandidates(&in, mode, history, affinity)

	queue := AssembleQueue(scored, clampInt(in.QueueLimit, MinQueueLimit, MaxQueueLimit))

	explanations := make(map[string]string, len(queue))
	for i := range queue {
		explanations[queue[i].ContentID] = explanationFor(scored, queue[i].ContentID)
	}

	// An empty pool has nothing to recommend, so no creator ranking either.
	upRanks := []CreatorRank{}
	if len(in.Candidates) > 0 {
		upRanks = affinity.Ranked(clampInt(in.UpRankLimit, MinUpRankLimit, MaxUpRankLimit))
	}

	return Plan{
		Mode:               mode,
		UpRanks:            upRanks,
		VideoQueue:         queue,
		ExplanationByID:    explanations,
		HistorySampleCount: len(history),
		NightSignalUsed:    in.NightActive,
		GeneratedAt:        in.Now,
	}
}

// ScoreAll scores and explains every eligible candidate, sorted by score
// descending. It exposes the intermediate ranking used by BuildPlan.
//
//nolint:gocritic // BuildInput passed by value, it is an argument bundle
func ScoreAll(in BuildInput) []ScoredCandidate {
	history := CleanHistory(in.History)
	affinity := AggregateAffinity(history, in.CreatorSignals, in.Now)
	return scoreCandidates(&in, normalizeMode(in.Mode), history, affinity)
}

func scoreCandidates(in *BuildInput, mode Mode, history []WatchedItem, affinity *AffinityMap) []ScoredCandidate {
	seen := make(map[string]struct{}, len(history))
	for i := range history {
		seen[history[i].ContentID] = struct{}{}
	}

	candidates := EligibleCandidates(in.Candidates, in.Feedback)
	scored := make([]ScoredCandidate, 0, len(candidates))
	for i := range candidates {
		item := candidates[i]
		aff := affinity.Score(item.CreatorID)
		_, alreadySeen := seen[item.ContentID]
		scored = append(scored, ScoredCandidate{
			Item: item,
			Score: ScoreCandidate(ScoreInput{
				Item:            item,
				CreatorAffinity: aff,
				Mode:            mode,
				NightActive:     in.NightActive,
				AlreadySeen:     alreadySeen,
				Now:             in.Now,
				Feedback:        in.Feedback,
			}),
			Explanation: Explain(item, mode, in.NightActive, aff),
		})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}

func normalizeMode(m Mode) Mode {
	if m.Valid() {
		return m
	}
	return ModeRelax
}

// CleanHistory keeps entries with a content id and a positive creator id,
// sorted by watch time, newest first. The input is not modified.
func CleanHistory(history []WatchedItem) []WatchedItem {
	out := make([]WatchedItem, 0, len(history))
	for i := range history {
		if validHistoryItem(&history[i]) {
			out = append(out, history[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ViewAt > out[j].ViewAt
	})
	return out
}

// EligibleCandidates drops candidates without an id or title, or already
// consumed, and collapses duplicate ids keeping the first occurrence.
//
//nolint:gocritic // NegativeFeedback holds only map/slice headers
func EligibleCandidates(candidates []CandidateItem, fb NegativeFeedback) []CandidateItem {
	out := make([]CandidateItem, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for i := range candidates {
		c := candidates[i]
		if strings.TrimSpace(c.ContentID) == "" || strings.TrimSpace(c.Title) == "" {
			continue
		}
		if fb.IsConsumed(c.ContentID) {
			continue
		}
		if _, dup := seen[c.ContentID]; dup {
			continue
		}
		seen[c.ContentID] = struct{}{}
		out = append(out, c)
	}
	return out
}

func explanationFor(scored []ScoredCandidate, contentID string) string {
	for i := range scored {
		if scored[i].Item.ContentID == contentID {
			return scored[i].Explanation
		}
	}
	return ""
}
