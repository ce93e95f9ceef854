// Today Watch - Local Video Recommendation and Queue Planning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/todaywatch

package models

import (
	"time"

	"github.com/tomtom215/todaywatch/internal/todaywatch"
)

// MaxDislikedKeywords caps the persisted keyword list; the oldest keyword
// is evicted first.
const MaxDislikedKeywords = 40

// FeedbackSnapshot is the persisted negative feedback.
type FeedbackSnapshot struct {
	DislikedIDs      []string  `json:"disliked_ids"`
	DislikedCreators []int64   `json:"disliked_creators"`
	DislikedKeywords []string  `json:"disliked_keywords"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// AddDislike records a disliked video, its creator (when positive) and the
// extracted keywords. Keywords already present keep their position.
func (f *FeedbackSnapshot) AddDislike(contentID string, creatorID int64, keywords []string) {
	if contentID != "" && !containsString(f.DislikedIDs, contentID) {
		f.DislikedIDs = append(f.DislikedIDs, contentID)
	}
	if creatorID > 0 && !containsInt64(f.DislikedCreators, creatorID) {
		f.DislikedCreators = append(f.DislikedCreators, creatorID)
	}
	for _, kw := range keywords {
		if kw == "" || containsString(f.DislikedKeywords, kw) {
			continue
		}
		if len(f.DislikedKeywords) >= MaxDislikedKeywords {
			f.DislikedKeywords = f.DislikedKeywords[1:]
		}
		f.DislikedKeywords = append(f.DislikedKeywords, kw)
	}
}

// NegativeFeedback converts the snapshot plus the session's consumed ids
// into the scorer's feedback bundle.
func (f *FeedbackSnapshot) NegativeFeedback(consumed []string) todaywatch.NegativeFeedback {
	return todaywatch.NewNegativeFeedback(consumed, f.DislikedIDs, f.DislikedCreators, f.DislikedKeywords)
}

func containsString(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

func containsInt64(values []int64, v int64) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
