// Today Watch - Local Video Recommendation and Queue Planning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/todaywatch

package models

import (
	"time"

	"github.com/tomtom215/todaywatch/internal/todaywatch"
)

// ContentRequest identifies one video (opened, disliked).
type ContentRequest struct {
	ContentID string `json:"content_id" validate:"required,min=1,max=64"`
}

// ProgressRequest reports a playback position for a creator's video.
type ProgressRequest struct {
	CreatorID   int64  `json:"creator_id" validate:"required,gt=0"`
	CreatorName string `json:"creator_name" validate:"max=128"`
	ContentID   string `json:"content_id" validate:"omitempty,max=64"`
	PositionSec int64  `json:"position_sec" validate:"gte=0"`
}

// SettingsRequest updates the Today Watch settings. Omitted fields keep
// their current value.
type SettingsRequest struct {
	Enabled            *bool   `json:"enabled,omitempty"`
	Mode               *string `json:"mode,omitempty" validate:"omitempty,today_watch_mode"`
	UpRankLimit        *int    `json:"up_rank_limit,omitempty" validate:"omitempty,min=1,max=12"`
	QueueBuildLimit    *int    `json:"queue_build_limit,omitempty" validate:"omitempty,min=6,max=40"`
	QueuePreviewLimit  *int    `json:"queue_preview_limit,omitempty" validate:"omitempty,min=3,max=12"`
	HistorySampleLimit *int    `json:"history_sample_limit,omitempty" validate:"omitempty,min=20,max=120"`
	LinkEyeCareSignal  *bool   `json:"link_eye_care_signal,omitempty"`
	ShowUpRank         *bool   `json:"show_up_rank,omitempty"`
	ShowReasonHint     *bool   `json:"show_reason_hint,omitempty"`
	Collapsed          *bool   `json:"collapsed,omitempty"`
}

// Apply merges the request into current.
func (r *SettingsRequest) Apply(current Settings) Settings {
	out := current
	if r.Enabled != nil {
		out.Enabled = *r.Enabled
	}
	if r.Mode != nil {
		if mode, err := todaywatch.ParseMode(*r.Mode); err == nil {
			out.Mode = mode
		}
	}
	if r.UpRankLimit != nil {
		out.UpRankLimit = *r.UpRankLimit
	}
	if r.QueueBuildLimit != nil {
		out.QueueBuildLimit = *r.QueueBuildLimit
	}
	if r.QueuePreviewLimit != nil {
		out.QueuePreviewLimit = *r.QueuePreviewLimit
	}
	if r.HistorySampleLimit != nil {
		out.HistorySampleLimit = *r.HistorySampleLimit
	}
	if r.LinkEyeCareSignal != nil {
		out.LinkEyeCareSignal = *r.LinkEyeCareSignal
	}
	if r.ShowUpRank != nil {
		out.ShowUpRank = *r.ShowUpRank
	}
	if r.ShowReasonHint != nil {
		out.ShowReasonHint = *r.ShowReasonHint
	}
	if r.Collapsed != nil {
		out.Collapsed = *r.Collapsed
	}
	return out.Normalize()
}

// HistoryBatch ingests watch-history entries.
type HistoryBatch struct {
	Items []HistoryItem `json:"items" validate:"required,min=1,max=500,dive"`
}

// HistoryItem is the wire form of todaywatch.WatchedItem.
type HistoryItem struct {
	ContentID   string `json:"content_id" validate:"required,max=64"`
	CreatorID   int64  `json:"creator_id" validate:"gte=0"`
	CreatorName string `json:"creator_name" validate:"max=128"`
	ViewAt      int64  `json:"view_at"`
	Progress    int64  `json:"progress"`
	Duration    int64  `json:"duration" validate:"gte=0"`
}

// ToWatched converts the wire form.
func (h *HistoryItem) ToWatched() todaywatch.WatchedItem {
	return todaywatch.WatchedItem{
		ContentID:   h.ContentID,
		CreatorID:   h.CreatorID,
		CreatorName: h.CreatorName,
		ViewAt:      h.ViewAt,
		Progress:    h.Progress,
		Duration:    h.Duration,
	}
}

// CandidateBatch ingests recommendation-pool entries.
type CandidateBatch struct {
	Items []CandidateItem `json:"items" validate:"required,min=1,max=500,dive"`

	// Replace drops the previous pool before inserting.
	Replace bool `json:"replace"`
}

// CandidateItem is the wire form of todaywatch.CandidateItem.
type CandidateItem struct {
	ContentID    string `json:"content_id" validate:"required,max=64"`
	Title        string `json:"title" validate:"required,max=256"`
	CreatorID    int64  `json:"creator_id" validate:"gte=0"`
	CreatorName  string `json:"creator_name" validate:"max=128"`
	Duration     int64  `json:"duration" validate:"gte=0"`
	PubDate      int64  `json:"pubdate"`
	ViewCount    int64  `json:"view_count" validate:"gte=0"`
	DanmakuCount int64  `json:"danmaku_count" validate:"gte=0"`
}

// ToCandidate converts the wire form.
func (c *CandidateItem) ToCandidate() todaywatch.CandidateItem {
	return todaywatch.CandidateItem{
		ContentID:    c.ContentID,
		Title:        c.Title,
		CreatorID:    c.CreatorID,
		CreatorName:  c.CreatorName,
		Duration:     c.Duration,
		PubDate:      c.PubDate,
		ViewCount:    c.ViewCount,
		DanmakuCount: c.DanmakuCount,
	}
}

// PreviewRequest runs the plan builder over a posted snapshot without
// touching stored state.
type PreviewRequest struct {
	History        []HistoryItem              `json:"history" validate:"max=500,dive"`
	Candidates     []CandidateItem            `json:"candidates" validate:"max=500,dive"`
	Mode           string                     `json:"mode" validate:"omitempty,today_watch_mode"`
	NightActive    bool                       `json:"night_active"`
	Now            *time.Time                 `json:"now,omitempty"`
	UpRankLimit    int                        `json:"up_rank_limit"`
	QueueLimit     int                        `json:"queue_limit"`
	CreatorSignals []todaywatch.CreatorSignal `json:"creator_signals" validate:"max=200"`
	ConsumedIDs    []string                   `json:"consumed_ids"`
	DislikedIDs    []string                   `json:"disliked_ids"`
	DislikedUps    []int64                    `json:"disliked_creators"`
	DislikedWords  []string                   `json:"disliked_keywords"`
}

// BuildInput converts the request; now is used when Now is absent.
func (p *PreviewRequest) BuildInput(now time.Time) todaywatch.BuildInput {
	in := todaywatch.BuildInput{
		History:        make([]todaywatch.WatchedItem, 0, len(p.History)),
		Candidates:     make([]todaywatch.CandidateItem, 0, len(p.Candidates)),
		Mode:           todaywatch.ModeRelax,
		NightActive:    p.NightActive,
		Now:            now,
		UpRankLimit:    p.UpRankLimit,
		QueueLimit:     p.QueueLimit,
		CreatorSignals: p.CreatorSignals,
		Feedback:       todaywatch.NewNegativeFeedback(p.ConsumedIDs, p.DislikedIDs, p.DislikedUps, p.DislikedWords),
	}
	if p.Now != nil {
		in.Now = *p.Now
	}
	if mode, err := todaywatch.ParseMode(p.Mode); err == nil {
		in.Mode = mode
	}
	for i := range p.History {
		in.History = append(in.History, p.History[i].ToWatched())
	}
	for i := range p.Candidates {
		in.Candidates = append(in.Candidates, p.Candidates[i].ToCandidate())
	}
	return in
}

// PlanView is the API representation of a plan, shaped by settings.
type PlanView struct {
	todaywatch.Plan
	PreviewLimit int    `json:"preview_limit"`
	RefreshToken int64  `json:"refresh_token"`
	Note         string `json:"note,omitempty"`
}
