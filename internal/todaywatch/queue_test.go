// Today Watch - Local Video Recommendation and Queue Planning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/todaywatch

package todaywatch

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func scored(id string, creator int64, score float64) ScoredCandidate {
	return ScoredCandidate{
		Item:  CandidateItem{ContentID: id, Title: id, CreatorID: creator},
		Score: score,
	}
}

func queueIDs(items []CandidateItem) []string {
	ids := make([]string, len(items))
	for i := range items {
		ids[i] = items[i].ContentID
	}
	return ids
}

func TestAssembleQueue(t *testing.T) {
	tests := []struct {
		name   string
		scored []ScoredCandidate
		limit  int
		want   []string
	}{
		{
			name:   "close second creator wins the second slot",
			scored: []ScoredCandidate{scored("A1", 1, 10), scored("A2", 1, 9.5), scored("B1", 2, 9.0)},
			limit:  2,
			want:   []string{"A1", "B1"},
		},
		{
			name:   "large gap keeps the same creator",
			scored: []ScoredCandidate{scored("A1", 1, 10), scored("A2", 1, 9.9), scored("B1", 2, 7.0)},
			limit:  2,
			want:   []string{"A1", "A2"},
		},
		{
			name: "alternates creators when scores are comparable",
			scored: []ScoredCandidate{
				scored("A1", 1, 5), scored("A2", 1, 4.9), scored("A3", 1, 4.8),
				scored("B1", 2, 4.7), scored("B2", 2, 4.6), scored("B3", 2, 4.5),
			},
			limit: 6,
			want:  []string{"A1", "B1", "A2", "B2", "A3", "B3"},
		},
		{
			name:   "ties keep pool order",
			scored: []ScoredCandidate{scored("X", 0, 1), scored("Y", 0, 1)},
			limit:  5,
			want:   []string{"X", "Y"},
		},
		{
			name:   "limit truncates",
			scored: []ScoredCandidate{scored("A", 1, 3), scored("B", 2, 2), scored("C", 3, 1)},
			limit:  1,
			want:   []string{"A"},
		},
		{
			name:   "zero limit",
			scored: []ScoredCandidate{scored("A", 1, 3)},
			limit:  0,
			want:   []string{},
		},
		{
			name:  "empty pool",
			limit: 10,
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := queueIDs(AssembleQueue(tt.scored, tt.limit))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("AssembleQueue() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAssembleQueue_NoAdjacentRepeatWhenAlternativesExist(t *testing.T) {
	pool := []ScoredCandidate{
		scored("A1", 1, 6.0), scored("A2", 1, 5.8), scored("A3", 1, 5.6), scored("A4", 1, 5.4),
		scored("B1", 2, 5.7), scored("B2", 2, 5.5),
		scored("C1", 3, 5.3), scored("C2", 3, 5.2),
	}
	queue := AssembleQueue(pool, len(pool))
	if len(queue) != len(pool) {
		t.Fatalf("len(queue) = %d, want %d", len(queue), len(pool))
	}

	// Only the tail may repeat once a single creator remains.
	for i := 1; i < len(queue)-1; i++ {
		if queue[i].CreatorID == queue[i-1].CreatorID {
			t.Errorf("adjacent repeat of creator %d at positions %d-%d: %v",
				queue[i].CreatorID, i-1, i, queueIDs(queue))
		}
	}
}

func TestAssembleQueue_DoesNotMutateInput(t *testing.T) {
	pool := []ScoredCandidate{scored("A", 1, 3), scored("B", 1, 2), scored("C", 2, 1)}
	before := append([]ScoredCandidate(nil), pool...)

	_ = AssembleQueue(pool, 3)

	if diff := cmp.Diff(before, pool); diff != "" {
		t.Errorf("input mutated (-before +after):\n%s", diff)
	}
}
