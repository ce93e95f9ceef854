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
)

// IngestHistory accepts a watch-history batch.
func (h *Handler) IngestHistory(w http.ResponseWriter, r *http.Request) {
	if h.ingest == nil {
		respondError(w, http.StatusServiceUnavailable, codeUnavailable, "Ingestion unavailable", nil)
		return
	}
	var batch models.HistoryBatch
	if !decodeAndValidate(w, r, &batch) {
		return
	}
	if err := h.ingest.IngestHistory(r.Context(), &batch); err != nil {
		respondError(w, http.StatusInternalServerError, codeInternal, "Failed to ingest history", err)
		return
	}
	logging.Ctx(r.Context()).Debug().Int("items", len(batch.Items)).Msg("History batch accepted")
	respondAccepted(w, len(batch.Items))
}

// IngestCandidates accepts a candidate batch.
func (h *Handler) IngestCandidates(w http.ResponseWriter, r *http.Request) {
	if h.ingest == nil {
		respondError(w, http.StatusServiceUnavailable, codeUnavailable, "Ingestion unavailable", nil)
		return
	}
	var batch models.CandidateBatch
	if !decodeAndValidate(w, r, &batch) {
		return
	}
	if err := h.ingest.IngestCandidates(r.Context(), &batch); err != nil {
		respondError(w, http.StatusInternalServerError, codeInternal, "Failed to ingest candidates", err)
		return
	}
	logging.Ctx(r.Context()).Debug().Int("items", len(batch.Items)).Bool("replace", batch.Replace).Msg("Candidate batch accepted")
	respondAccepted(w, len(batch.Items))
}

func respondAccepted(w http.ResponseWriter, n int) {
	respondJSON(w, http.StatusAccepted, &models.APIResponse{
		Status:   statusSuccess,
		Data:     map[string]interface{}{"accepted": n},
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}
