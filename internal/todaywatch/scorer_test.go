// Today Watch - Local Video Recommendation and Queue Planning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/todaywatch

package todaywatch

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func baseCandidate() CandidateItem {
	return CandidateItem{
		ContentID:   "BV1",
		Title:       "t1",
		CreatorID:   1,
		CreatorName: "Alpha",
		Duration:    600,
		PubDate:     testNowSec,
		ViewCount:   1000,
	}
}

func TestScoreCandidate_Relax(t *testing.T) {
	got := ScoreCandidate(ScoreInput{Item: baseCandidate(), Mode: ModeRelax, Now: testNow})
	// popularity + fresh + 10 minute relax fit + calm
	want := math.Log(1001)*0.45 + 0.8 + 1.4 + 1.0
	if !approxEqual(got, want) {
		t.Errorf("score = %f, want %f", got, want)
	}
}

func TestScoreCandidate_Learn(t *testing.T) {
	got := ScoreCandidate(ScoreInput{Item: baseCandidate(), Mode: ModeLearn, Now: testNow})
	// popularity + fresh + 10 minute learn fit + long-enough bonus, no calmness
	want := math.Log(1001)*0.45 + 0.8 + 0.5 + 0.6
	if !approxEqual(got, want) {
		t.Errorf("score = %f, want %f", got, want)
	}
}

func TestScoreCandidate_CreatorAffinity(t *testing.T) {
	without := ScoreCandidate(ScoreInput{Item: baseCandidate(), Mode: ModeRelax, Now: testNow})
	with := ScoreCandidate(ScoreInput{Item: baseCandidate(), Mode: ModeRelax, Now: testNow, CreatorAffinity: 3})
	if !approxEqual(with-without, math.Log(4)*2.1) {
		t.Errorf("affinity contribution = %f, want %f", with-without, math.Log(4)*2.1)
	}
}

func TestScoreCandidate_SeenPenaltyIsExact(t *testing.T) {
	for _, mode := range []Mode{ModeRelax, ModeLearn} {
		for _, night := range []bool{false, true} {
			in := ScoreInput{Item: baseCandidate(), Mode: mode, NightActive: night, Now: testNow, CreatorAffinity: 1.5}
			unseen := ScoreCandidate(in)
			in.AlreadySeen = true
			seen := ScoreCandidate(in)
			if !approxEqual(unseen-seen, 2.6) {
				t.Errorf("mode=%s night=%v: seen penalty = %f, want 2.6", mode, night, unseen-seen)
			}
		}
	}
}

func TestScoreCandidate_NightAdjustmentApplied(t *testing.T) {
	in := ScoreInput{Item: baseCandidate(), Mode: ModeRelax, Now: testNow}
	day := ScoreCandidate(in)
	in.NightActive = true
	night := ScoreCandidate(in)
	if !approxEqual(night-day, 1.8) {
		t.Errorf("night delta = %f, want 1.8", night-day)
	}
}

func TestScoreCandidate_FeedbackMonotonicity(t *testing.T) {
	item := baseCandidate()
	item.Title = "Spoiler review of the finale"

	feedbacks := []struct {
		name string
		fb   NegativeFeedback
	}{
		{"disliked content", NewNegativeFeedback(nil, []string{"BV1"}, nil, nil)},
		{"disliked creator", NewNegativeFeedback(nil, nil, []int64{1}, nil)},
		{"disliked keyword", NewNegativeFeedback(nil, nil, nil, []string{"SPOILER"})},
		{"unrelated feedback", NewNegativeFeedback(nil, []string{"BV9"}, []int64{9}, []string{"cooking"})},
	}

	baseline := ScoreCandidate(ScoreInput{Item: item, Mode: ModeRelax, Now: testNow})
	for _, tt := range feedbacks {
		t.Run(tt.name, func(t *testing.T) {
			got := ScoreCandidate(ScoreInput{Item: item, Mode: ModeRelax, Now: testNow, Feedback: tt.fb})
			if got > baseline {
				t.Errorf("feedback raised score: %f > %f", got, baseline)
			}
		})
	}
}

func TestDurationScores(t *testing.T) {
	tests := []struct {
		minutes float64
		relax   float64
		learn   float64
	}{
		{1, -0.2, -0.6},
		{2, 1.4, -0.6},
		{5, 1.4, 0.5},
		{12, 1.4, 0.5},
		{15, 0.6, 1.5},
		{20, 0.6, 1.5},
		{30, -0.1, 1.5},
		{35, -0.1, 1.5},
		{50, -0.9, 0.8},
		{55, -0.9, 0.8},
		{90, -0.9, -0.2},
	}

	for _, tt := range tests {
		if got := RelaxDurationScore(tt.minutes); got != tt.relax {
			t.Errorf("RelaxDurationScore(%v) = %v, want %v", tt.minutes, got, tt.relax)
		}
		if got := LearnDurationScore(tt.minutes); got != tt.learn {
			t.Errorf("LearnDurationScore(%v) = %v, want %v", tt.minutes, got, tt.learn)
		}
	}
}

func TestDurationMinutes(t *testing.T) {
	if got := DurationMinutes(-60); got != 0 {
		t.Errorf("DurationMinutes(-60) = %v, want 0", got)
	}
	if got := DurationMinutes(600); got != 10 {
		t.Errorf("DurationMinutes(600) = %v, want 10", got)
	}
	if got := DurationMinutes(100000); got != 180 {
		t.Errorf("DurationMinutes(100000) = %v, want 180", got)
	}
}

func TestFreshnessScore(t *testing.T) {
	day := int64(86400)
	tests := []struct {
		name    string
		pubDate int64
		want    float64
	}{
		{"unknown", 0, 0},
		{"today", testNowSec - 100, 0.8},
		{"two days", testNowSec - 2*day, 0.55},
		{"six days", testNowSec - 6*day, 0.3},
		{"three weeks", testNowSec - 21*day, 0.1},
		{"a year", testNowSec - 365*day, -0.05},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FreshnessScore(tt.pubDate, testNowSec); got != tt.want {
				t.Errorf("FreshnessScore = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCalmnessFactor(t *testing.T) {
	tests := []struct {
		intensity float64
		want      float64
	}{
		{0, 1.0},
		{0.0039, 1.0},
		{0.004, 0.3},
		{0.0099, 0.3},
		{0.01, -1.0},
		{0.5, -1.0},
	}
	for _, tt := range tests {
		if got := CalmnessFactor(tt.intensity); got != tt.want {
			t.Errorf("CalmnessFactor(%v) = %v, want %v", tt.intensity, got, tt.want)
		}
	}
}

func TestIntensity(t *testing.T) {
	if got := Intensity(50, 0); got != 50 {
		t.Errorf("Intensity(50, 0) = %v, want 50 (views floor at 1)", got)
	}
	if got := Intensity(10, 1000); !approxEqual(got, 0.01) {
		t.Errorf("Intensity(10, 1000) = %v, want 0.01", got)
	}
}

func TestNightAdjustment(t *testing.T) {
	tests := []struct {
		name      string
		minutes   float64
		intensity float64
		want      float64
	}{
		{"short calm", 10, 0, 1.8},
		{"medium moderate", 20, 0.008, 0.2},
		{"long busy", 45, 0.02, -3.1},
		{"very long calm caps penalty", 180, 0.001, -2.4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NightAdjustment(tt.minutes, tt.intensity); !approxEqual(got, tt.want) {
				t.Errorf("NightAdjustment(%v, %v) = %v, want %v", tt.minutes, tt.intensity, got, tt.want)
			}
		})
	}
}

func TestKeywordBonus(t *testing.T) {
	tests := []struct {
		name     string
		title    string
		positive []string
		negative []string
		want     float64
	}{
		{"mixed relax title", "音乐vlog教程", relaxKeywords, learnKeywords, 0.75},
		{"clamped high", "音乐vlog日常搞笑", relaxKeywords, learnKeywords, 1.8},
		{"clamped low", "编程教程数学英语", relaxKeywords, learnKeywords, -1.2},
		{"no hits", "plain title", relaxKeywords, learnKeywords, 0},
		{"learn roles reversed", "编程入门", learnKeywords, relaxKeywords, 1.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KeywordBonus(tt.title, tt.positive, tt.negative); !approxEqual(got, tt.want) {
				t.Errorf("KeywordBonus(%q) = %v, want %v", tt.title, got, tt.want)
			}
		})
	}
}

func TestNewNegativeFeedback_NormalizesKeywords(t *testing.T) {
	fb := NewNegativeFeedback(nil, nil, nil, []string{" Spoiler", "", "剧透", "spoiler", "  ", "剧透"})
	want := []string{"spoiler", "剧透"}
	if diff := cmp.Diff(want, fb.DislikedKeywords); diff != "" {
		t.Errorf("DislikedKeywords mismatch (-want +got):\n%s", diff)
	}
}

func TestFeedbackPenalty(t *testing.T) {
	item := CandidateItem{ContentID: "BV1", Title: "剧透 Spoiler alert", CreatorID: 7}
	title := "剧透 spoiler alert"

	t.Run("all signals sum", func(t *testing.T) {
		fb := NewNegativeFeedback(nil, []string{"BV1"}, []int64{7}, []string{"Spoiler", "剧透", " ", "xyz"})
		if got := FeedbackPenalty(item, title, fb); !approxEqual(got, -7.0) {
			t.Errorf("penalty = %v, want -7.0", got)
		}
	})

	t.Run("keyword penalty is capped", func(t *testing.T) {
		fb := NewNegativeFeedback(nil, nil, nil, []string{"s", "p", "o", "i", "l"})
		if got := FeedbackPenalty(item, title, fb); !approxEqual(got, -2.8) {
			t.Errorf("penalty = %v, want -2.8", got)
		}
	})

	t.Run("repeated keyword counts once", func(t *testing.T) {
		fb := NewNegativeFeedback(nil, nil, nil, []string{"spoiler", "Spoiler", " spoiler ", "SPOILER"})
		if got := FeedbackPenalty(item, title, fb); !approxEqual(got, -0.7) {
			t.Errorf("penalty = %v, want -0.7", got)
		}
		literal := NegativeFeedback{DislikedKeywords: []string{"spoiler", "Spoiler", "spoiler"}}
		if got := FeedbackPenalty(item, title, literal); !approxEqual(got, -0.7) {
			t.Errorf("literal penalty = %v, want -0.7", got)
		}
	})

	t.Run("no feedback", func(t *testing.T) {
		if got := FeedbackPenalty(item, title, NegativeFeedback{}); got != 0 {
			t.Errorf("penalty = %v, want 0", got)
		}
	})
}
