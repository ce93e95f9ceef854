// Today Watch - Local Video Recommendation and Queue Planning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/todaywatch

package todaywatch

import "strings"

// Consume removes contentID from the plan's queue and explanation mapping.
//
// It returns the updated plan, whether anything was removed, and whether the
// remaining queue is shorter than the preview window (max(previewLimit, 1))
// so the caller should rebuild. A blank or unknown id returns the plan
// unchanged with both flags false. The input plan is never mutated.
//
//nolint:gocritic // Plan passed by value, it is treated as immutable
func Consume(plan Plan, contentID string, previewLimit int) (updated Plan, applied, shouldRefill bool) {
	if strings.TrimSpace(contentID) == "" {
		return plan, false, false
	}

	idx := -1
	for i := range plan.VideoQueue {
		if plan.VideoQueue[i].ContentID == contentID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return plan, false, false
	}

	updated = plan.Clone()
	updated.VideoQueue = append(updated.VideoQueue[:idx], updated.VideoQueue[idx+1:]...)
	delete(updated.ExplanationByID, contentID)

	return updated, true, len(updated.VideoQueue) < max(previewLimit, 1)
}

// CollectConsumedForManualRefresh returns the ids currently visible in the
// preview window, which a manual refresh marks as consumed so the next plan
// shows new videos. A nil plan yields nothing.
func CollectConsumedForManualRefresh(plan *Plan, previewLimit int) []string {
	if plan == nil {
		return nil
	}
	limit := max(previewLimit, 1)
	out := make([]string, 0, min(limit, len(plan.VideoQueue)))
	for i := range plan.VideoQueue {
		if len(out) == limit {
			break
		}
		if id := plan.VideoQueue[i].ContentID; strings.TrimSpace(id) != "" {
			out = append(out, id)
		}
	}
	return out
}

// ShouldAutoRebuild reports whether a context change (feed shown, card
// expanded) should rebuild the plan without an explicit request.
func ShouldAutoRebuild(enabled, collapsed bool) bool {
	return enabled && !collapsed
}
