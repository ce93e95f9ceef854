// Today Watch - Local Video Recommendation and Queue Planning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/todaywatch

package todaywatch

import "strings"

// Explanation tags shown next to queued videos.
const (
	TagLeisure          = "leisure-oriented"
	TagLearning         = "learning-oriented"
	TagShort            = "short"
	TagMedium           = "medium"
	TagLong             = "long"
	TagNightFriendly    = "night-friendly"
	TagNightAdjusted    = "night-adjusted"
	TagPreferredCreator = "preferred creator"

	// TagSeparator joins tags into one label.
	TagSeparator = " · "

	preferredCreatorThreshold = 0.8
)

// Explain builds the short rationale label for a candidate. It has no effect
// on scoring.
//
//nolint:gocritic // CandidateItem passed by value for read-only access
func Explain(item CandidateItem, mode Mode, nightActive bool, creatorAffinity float64) string {
	tags := make([]string, 0, 4)
	if mode == ModeLearn {
		tags = append(tags, TagLearning)
	} else {
		tags = append(tags, TagLeisure)
	}

	// Unclamped, unlike DurationMinutes.
	minutes := float64(max(item.Duration, 0)) / 60.0
	switch {
	case minutes >= 3 && minutes <= 15:
		tags = append(tags, TagShort)
	case minutes >= 15 && minutes <= 35:
		tags = append(tags, TagMedium)
	case minutes > 35:
		tags = append(tags, TagLong)
	}

	if nightActive {
		if minutes <= 25 && Intensity(item.DanmakuCount, item.ViewCount) < 0.012 {
			tags = append(tags, TagNightFriendly)
		} else {
			tags = append(tags, TagNightAdjusted)
		}
	}

	if creatorAffinity > preferredCreatorThreshold {
		tags = append(tags, TagPreferredCreator)
	}

	return strings.Join(distinct(tags), TagSeparator)
}

func distinct(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := values[:0]
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
