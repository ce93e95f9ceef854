// Today Watch - Local Video Recommendation and Queue Planning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/todaywatch

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/todaywatch/internal/database"
	"github.com/tomtom215/todaywatch/internal/models"
)

const healthPingTimeout = 2 * time.Second

// statsProvider is implemented by *database.DB.
type statsProvider interface {
	Stats(ctx context.Context) (*database.Stats, error)
}

// Health reports liveness and component state. It always answers 200.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	components := map[string]string{
		"database":  h.databaseState(r.Context()),
		"websocket": "disabled",
		"ingest":    "disabled",
	}
	if h.hub != nil {
		components["websocket"] = "ok"
	}
	if h.ingest != nil {
		components["ingest"] = "ok"
	}

	status := "healthy"
	if components["database"] == "down" {
		status = "degraded"
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: statusSuccess,
		Data: models.HealthStatus{
			Status:     status,
			Version:    h.version,
			Uptime:     time.Since(h.startTime).Seconds(),
			Components: components,
		},
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}

// HealthReady returns 503 until the database answers.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	state := h.databaseState(r.Context())
	ready := state != "down"

	statusCode := http.StatusOK
	status := "ready"
	if !ready {
		statusCode = http.StatusServiceUnavailable
		status = "not_ready"
	}

	data := map[string]interface{}{
		"database":       state,
		"ready_to_serve": ready,
		"uptime":         time.Since(h.startTime).Seconds(),
	}
	if sp, ok := h.db.(statsProvider); ok && ready {
		ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
		if stats, err := sp.Stats(ctx); err == nil {
			data["stats"] = stats
		}
		cancel()
	}

	respondJSON(w, statusCode, &models.APIResponse{
		Status: status,
		Data:   data,
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}

func (h *Handler) databaseState(ctx context.Context) string {
	if h.db == nil {
		return "disabled"
	}
	ctx, cancel := context.WithTimeout(ctx, healthPingTimeout)
	defer cancel()
	if err := h.db.Ping(ctx); err != nil {
		return "down"
	}
	return "ok"
}
