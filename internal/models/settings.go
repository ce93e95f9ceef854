// Today Watch - Local Video Recommendation and Queue Planning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/todaywatch

package models

import (
	"github.com/tomtom215/todaywatch/internal/todaywatch"
)

// Settings ranges. Values outside are clamped by Normalize.
const (
	MinUpRankLimit        = 1
	MaxUpRankLimit        = 12
	MinQueueBuildLimit    = 6
	MaxQueueBuildLimit    = 40
	MinQueuePreviewLimit  = 3
	MaxQueuePreviewLimit  = 12
	MinHistorySampleLimit = 20
	MaxHistorySampleLimit = 120
)

// Settings is the user-facing Today Watch configuration, persisted by the
// settings store and editable through the API.
type Settings struct {
	// Enabled turns the whole feature on or off.
	Enabled bool `json:"enabled"`

	// Mode is the selected viewing mode.
	Mode todaywatch.Mode `json:"mode" validate:"omitempty,today_watch_mode"`

	// UpRankLimit bounds the creator ranking shown with the plan.
	UpRankLimit int `json:"up_rank_limit"`

	// QueueBuildLimit is the queue length requested from the plan builder.
	QueueBuildLimit int `json:"queue_build_limit"`

	// QueuePreviewLimit is how many queued videos a client shows at once.
	// Consumption refills the plan once the queue drops below it.
	QueuePreviewLimit int `json:"queue_preview_limit"`

	// HistorySampleLimit is the number of history entries sampled per build.
	HistorySampleLimit int `json:"history_sample_limit"`

	// LinkEyeCareSignal applies night adjustments while the eye-care window is active.
	LinkEyeCareSignal bool `json:"link_eye_care_signal"`

	ShowUpRank     bool `json:"show_up_rank"`
	ShowReasonHint bool `json:"show_reason_hint"`

	// Collapsed suppresses automatic rebuilds while the card is folded.
	Collapsed bool `json:"collapsed"`

	// RefreshToken changes whenever personalization data is cleared, so
	// clients can drop cached plans.
	RefreshToken int64 `json:"refresh_token"`
}

// DefaultSettings returns the out-of-the-box configuration.
func DefaultSettings() Settings {
	return Settings{
		Enabled:            true,
		Mode:               todaywatch.ModeRelax,
		UpRankLimit:        5,
		QueueBuildLimit:    20,
		QueuePreviewLimit:  6,
		HistorySampleLimit: 80,
		LinkEyeCareSignal:  true,
		ShowUpRank:         true,
		ShowReasonHint:     true,
	}
}

// Normalize clamps every limit into its range and repairs the mode.
// The preview limit never exceeds the build limit.
func (s Settings) Normalize() Settings {
	out := s
	if !out.Mode.Valid() {
		out.Mode = todaywatch.ModeRelax
	}
	out.UpRankLimit = clampInt(out.UpRankLimit, MinUpRankLimit, MaxUpRankLimit)
	out.QueueBuildLimit = clampInt(out.QueueBuildLimit, MinQueueBuildLimit, MaxQueueBuildLimit)
	out.QueuePreviewLimit = clampInt(out.QueuePreviewLimit, MinQueuePreviewLimit, MaxQueuePreviewLimit)
	if out.QueuePreviewLimit > out.QueueBuildLimit {
		out.QueuePreviewLimit = out.QueueBuildLimit
	}
	out.HistorySampleLimit = clampInt(out.HistorySampleLimit, MinHistorySampleLimit, MaxHistorySampleLimit)
	return out
}

// CreatorSignalLimit is the number of persisted creator signals merged per build.
func (s Settings) CreatorSignalLimit() int {
	return s.HistorySampleLimit / 4
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
