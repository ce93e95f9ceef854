// Today Watch - Local Video Recommendation and Queue Planning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/todaywatch

package todaywatch

import (
	"math"
	"strings"
	"time"
)

// Scoring weights. They are empirically tuned product constants; any change
// is a ranking behavior change and must be treated as such.
const (
	popularityWeight = 0.45
	affinityWeight   = 2.1
	seenPenalty      = -2.6

	maxDurationMinutes = 180.0

	dislikedContentPenalty = -3.2
	dislikedCreatorPenalty = -2.4
	dislikedKeywordPenalty = -0.7
	maxKeywordPenalty      = -2.8

	keywordPositiveWeight = 0.55
	keywordNegativeWeight = 0.35
	minKeywordBonus       = -1.2
	maxKeywordBonus       = 1.8
)

// ScoreInput carries the per-candidate context for ScoreCandidate.
type ScoreInput struct {
	Item            CandidateItem
	CreatorAffinity float64
	Mode            Mode
	NightActive     bool
	AlreadySeen     bool
	Now             time.Time
	Feedback        NegativeFeedback
}

// ScoreCandidate computes the unbounded ranking score of one candidate.
// Higher is better. Feedback terms are never positive.
//
//nolint:gocritic // ScoreInput is a small value aggregate
func ScoreCandidate(in ScoreInput) float64 {
	item := in.Item
	minutes := DurationMinutes(item.Duration)
	intensity := Intensity(item.DanmakuCount, item.ViewCount)
	title := strings.ToLower(item.Title)

	base := math.Log(float64(max(item.ViewCount, 0))+1) * popularityWeight
	creator := math.Log(max(in.CreatorAffinity, 0)+1) * affinityWeight
	freshness := FreshnessScore(item.PubDate, in.Now.Unix())

	seen := 0.0
	if in.AlreadySeen {
		seen = seenPenalty
	}

	var mode float64
	switch in.Mode {
	case ModeLearn:
		mode = LearnDurationScore(minutes) + KeywordBonus(title, learnKeywords, relaxKeywords)
		if minutes >= 10 {
			mode += 0.6
		} else {
			mode -= 0.2
		}
	default:
		mode = RelaxDurationScore(minutes) + KeywordBonus(title, relaxKeywords, learnKeywords) + CalmnessFactor(intensity)
	}

	night := 0.0
	if in.NightActive {
		night = NightAdjustment(minutes, intensity)
	}

	return base + creator + freshness + seen + mode + night + FeedbackPenalty(item, title, in.Feedback)
}

// DurationMinutes converts seconds to minutes, clamped to [0, 180].
func DurationMinutes(durationSec int64) float64 {
	return math.Min(float64(max(durationSec, 0))/60.0, maxDurationMinutes)
}

// Intensity approximates how busy a video is: comment density per view.
func Intensity(danmaku, views int64) float64 {
	return float64(danmaku) / math.Max(float64(views), 1)
}

// FreshnessScore rewards recently published videos. Unknown publish time scores 0.
func FreshnessScore(pubDate, nowSec int64) float64 {
	if pubDate <= 0 {
		return 0
	}
	days := ageInDays(pubDate, nowSec)
	switch {
	case days <= 1:
		return 0.8
	case days <= 3:
		return 0.55
	case days <= 7:
		return 0.3
	case days <= 30:
		return 0.1
	default:
		return -0.05
	}
}

// CalmnessFactor favors low comment density. Only RELAX mode uses it.
func CalmnessFactor(intensity float64) float64 {
	switch {
	case intensity < 0.004:
		return 1.0
	case intensity < 0.01:
		return 0.3
	default:
		return -1.0
	}
}

// RelaxDurationScore scores duration fit for leisure viewing.
func RelaxDurationScore(minutes float64) float64 {
	switch {
	case minutes < 2:
		return -0.2
	case minutes <= 12:
		return 1.4
	case minutes <= 20:
		return 0.6
	case minutes <= 35:
		return -0.1
	default:
		return -0.9
	}
}

// LearnDurationScore scores duration fit for study viewing.
func LearnDurationScore(minutes float64) float64 {
	switch {
	case minutes < 5:
		return -0.6
	case minutes <= 12:
		return 0.5
	case minutes <= 35:
		return 1.5
	case minutes <= 55:
		return 0.8
	default:
		return -0.2
	}
}

// KeywordBonus scores vocabulary fit of a lower-cased title, clamped to [-1.2, 1.8].
func KeywordBonus(title string, positive, negative []string) float64 {
	pos := float64(countHits(title, positive)) * keywordPositiveWeight
	neg := float64(countHits(title, negative)) * keywordNegativeWeight
	return clamp(pos-neg, minKeywordBonus, maxKeywordBonus)
}

// NightAdjustment biases toward short, calm videos while the night signal is active.
func NightAdjustment(minutes, intensity float64) float64 {
	var durationTerm float64
	switch {
	case minutes <= 15:
		durationTerm = 1.2
	case minutes <= 25:
		durationTerm = 0.2
	default:
		durationTerm = -math.Min((minutes-25)/10, 3.0)
	}

	var intensityTerm float64
	switch {
	case intensity < 0.006:
		intensityTerm = 0.6
	case intensity < 0.012:
		intensityTerm = 0
	default:
		intensityTerm = -1.1
	}

	return durationTerm + intensityTerm
}

// FeedbackPenalty sums the negative-feedback terms for a candidate.
// The result is always <= 0. title must already be lower-cased.
//
//nolint:gocritic // CandidateItem passed by value for read-only access
func FeedbackPenalty(item CandidateItem, title string, fb NegativeFeedback) float64 {
	penalty := 0.0
	if _, ok := fb.DislikedIDs[item.ContentID]; ok {
		penalty += dislikedContentPenalty
	}
	if _, ok := fb.DislikedCreators[item.CreatorID]; ok {
		penalty += dislikedCreatorPenalty
	}

	hits := 0
	var matched map[string]struct{}
	for _, kw := range fb.DislikedKeywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" || !strings.Contains(title, kw) {
			continue
		}
		if _, dup := matched[kw]; dup {
			continue
		}
		if matched == nil {
			matched = make(map[string]struct{}, len(fb.DislikedKeywords))
		}
		matched[kw] = struct{}{}
		hits++
	}
	penalty += math.Max(float64(hits)*dislikedKeywordPenalty, maxKeywordPenalty)
	return penalty
}
