// Today Watch - Local Video Recommendation and Queue Planning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/todaywatch

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/todaywatch/internal/logging"
	"github.com/tomtom215/todaywatch/internal/models"
	"github.com/tomtom215/todaywatch/internal/planner"
	"github.com/tomtom215/todaywatch/internal/todaywatch"
)

// GetPlan returns the current plan, building it on first use.
func (h *Handler) GetPlan(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	view, err := h.planner.Plan(r.Context())
	if err != nil {
		respondPlanError(w, err)
		return
	}
	respondSuccess(w, view, start)
}

// RebuildPlan forces a rebuild with freshly loaded history.
func (h *Handler) RebuildPlan(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	view, err := h.planner.Rebuild(r.Context(), planner.ReasonForced)
	if err != nil {
		respondPlanError(w, err)
		return
	}
	respondSuccess(w, view, start)
}

// RefreshPlan consumes the visible preview and rebuilds. Throttled
// refreshes get 429.
func (h *Handler) RefreshPlan(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	view, err := h.planner.Refresh(r.Context())
	if err != nil {
		respondPlanError(w, err)
		return
	}
	respondSuccess(w, view, start)
}

// MarkOpened consumes one queue entry.
func (h *Handler) MarkOpened(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req models.ContentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	view, err := h.planner.MarkOpened(r.Context(), req.ContentID)
	if err != nil {
		respondPlanError(w, err)
		return
	}
	respondSuccess(w, view, start)
}

// Dislike records negative feedback for a candidate and rebuilds.
func (h *Handler) Dislike(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req models.ContentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	view, err := h.planner.RecordDislike(r.Context(), req.ContentID)
	if err != nil {
		respondPlanError(w, err)
		return
	}
	logging.Ctx(r.Context()).Info().Str("content_id", req.ContentID).Msg("Dislike recorded")
	respondSuccess(w, view, start)
}

// Progress records a playback position snapshot.
func (h *Handler) Progress(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req models.ProgressRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if err := h.planner.RecordWatchProgress(r.Context(), req.CreatorID, req.CreatorName, req.ContentID, req.PositionSec); err != nil {
		respondPlanError(w, err)
		return
	}
	respondSuccess(w, map[string]interface{}{"recorded": true}, start)
}

// GetSettings returns the current settings.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	settings, err := h.planner.Settings(r.Context())
	if err != nil {
		respondPlanError(w, err)
		return
	}
	respondSuccess(w, settings, start)
}

// UpdateSettings merges the request into the stored settings.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req models.SettingsRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	current, err := h.planner.Settings(r.Context())
	if err != nil {
		respondPlanError(w, err)
		return
	}
	updated, err := h.planner.UpdateSettings(r.Context(), req.Apply(current))
	if err != nil {
		respondPlanError(w, err)
		return
	}
	respondSuccess(w, updated, start)
}

// ClearPersonalization wipes signals, feedback and the session state.
func (h *Handler) ClearPersonalization(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	settings, err := h.planner.ClearPersonalization(r.Context())
	if err != nil {
		respondPlanError(w, err)
		return
	}
	logging.Ctx(r.Context()).Info().Int64("refresh_token", settings.RefreshToken).Msg("Personalization cleared")
	respondSuccess(w, settings, start)
}

// Preview builds a plan over the posted snapshot without touching state.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req models.PreviewRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	plan := todaywatch.BuildPlan(req.BuildInput(h.now()))
	respondSuccess(w, plan, start)
}
