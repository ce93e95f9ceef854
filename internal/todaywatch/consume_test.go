// Today Watch - Local Video Recommendation and Queue Planning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/todaywatch

package todaywatch

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func threeItemPlan() Plan {
	return Plan{
		Mode: ModeRelax,
		VideoQueue: []CandidateItem{
			{ContentID: "a", Title: "A"},
			{ContentID: "b", Title: "B"},
			{ContentID: "c", Title: "C"},
		},
		ExplanationByID: map[string]string{"a": "x", "b": "y", "c": "z"},
		GeneratedAt:     testNow,
	}
}

func TestConsume(t *testing.T) {
	tests := []struct {
		name        string
		id          string
		preview     int
		wantQueue   []string
		wantApplied bool
		wantRefill  bool
	}{
		{"removes and requests refill", "b", 6, []string{"a", "c"}, true, true},
		{"removes without refill", "a", 2, []string{"b", "c"}, true, false},
		{"unknown id is a no-op", "zz", 6, []string{"a", "b", "c"}, false, false},
		{"blank id is a no-op", "  ", 6, []string{"a", "b", "c"}, false, false},
		{"preview floors at one", "c", 0, []string{"a", "b"}, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := threeItemPlan()
			updated, applied, refill := Consume(plan, tt.id, tt.preview)

			if applied != tt.wantApplied || refill != tt.wantRefill {
				t.Errorf("Consume() applied=%v refill=%v, want %v %v", applied, refill, tt.wantApplied, tt.wantRefill)
			}
			if diff := cmp.Diff(tt.wantQueue, updated.QueueIDs()); diff != "" {
				t.Errorf("queue mismatch (-want +got):\n%s", diff)
			}
			if applied {
				if _, ok := updated.ExplanationByID[tt.id]; ok {
					t.Errorf("explanation for %s still present", tt.id)
				}
			}
			if diff := cmp.Diff(threeItemPlan(), plan); diff != "" {
				t.Errorf("input plan mutated (-want +got):\n%s", diff)
			}
		})
	}
}

func TestConsume_Idempotent(t *testing.T) {
	plan := threeItemPlan()
	once, applied, _ := Consume(plan, "b", 3)
	if !applied {
		t.Fatal("first consume not applied")
	}
	twice, applied, refill := Consume(once, "b", 3)
	if applied || refill {
		t.Errorf("second consume applied=%v refill=%v, want false false", applied, refill)
	}
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("second consume changed plan (-want +got):\n%s", diff)
	}
}

func TestConsume_LastItemAlwaysRefills(t *testing.T) {
	plan := Plan{
		VideoQueue:      []CandidateItem{{ContentID: "only"}},
		ExplanationByID: map[string]string{"only": ""},
	}
	updated, applied, refill := Consume(plan, "only", -5)
	if !applied || !refill {
		t.Errorf("applied=%v refill=%v, want true true", applied, refill)
	}
	if len(updated.VideoQueue) != 0 || len(updated.ExplanationByID) != 0 {
		t.Errorf("updated = %+v, want empty", updated)
	}
}

func TestCollectConsumedForManualRefresh(t *testing.T) {
	t.Run("takes preview window", func(t *testing.T) {
		plan := threeItemPlan()
		got := CollectConsumedForManualRefresh(&plan, 2)
		if diff := cmp.Diff([]string{"a", "b"}, got); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("ignores blank ids", func(t *testing.T) {
		plan := Plan{VideoQueue: []CandidateItem{{ContentID: "", Title: "NoId"}, {ContentID: "b", Title: "B"}}}
		got := CollectConsumedForManualRefresh(&plan, 5)
		if diff := cmp.Diff([]string{"b"}, got); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("nil plan", func(t *testing.T) {
		if got := CollectConsumedForManualRefresh(nil, 3); len(got) != 0 {
			t.Errorf("got %v, want empty", got)
		}
	})
}

func TestShouldAutoRebuild(t *testing.T) {
	tests := []struct {
		enabled, collapsed, want bool
	}{
		{true, false, true},
		{true, true, false},
		{false, false, false},
		{false, true, false},
	}
	for _, tt := range tests {
		if got := ShouldAutoRebuild(tt.enabled, tt.collapsed); got != tt.want {
			t.Errorf("ShouldAutoRebuild(%v, %v) = %v, want %v", tt.enabled, tt.collapsed, got, tt.want)
		}
	}
}
