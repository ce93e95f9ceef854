// Today Watch - Local Video Recommendation and Queue Planning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/todaywatch

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/todaywatch/internal/logging"
	"github.com/tomtom215/todaywatch/internal/models"
	"github.com/tomtom215/todaywatch/internal/planner"
	"github.com/tomtom215/todaywatch/internal/validation"
)

// Error codes carried in APIError.Code.
const (
	codeValidation   = "VALIDATION_ERROR"
	codeNotFound     = "NOT_FOUND"
	codeRateLimited  = "RATE_LIMIT_EXCEEDED"
	codeDisabled     = "DISABLED"
	codeInternal     = "INTERNAL_ERROR"
	codeUnavailable  = "SERVICE_UNAVAILABLE"
	maxBodyBytes     = 2 << 20
	statusSuccess    = "success"
	statusError      = "error"
	contentTypeJSON  = "application/json"
	headerCacheCtrl  = "Cache-Control"
	cacheControlNone = "no-store"
)

// sanitizeLogValue escapes control characters to prevent log injection.
func sanitizeLogValue(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			fmt.Fprintf(&b, "\\x%02x", r)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// respondJSON writes response with the given status.
func respondJSON(w http.ResponseWriter, status int, response *models.APIResponse) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.Header().Set(headerCacheCtrl, cacheControlNone)

	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// respondSuccess wraps data in a success envelope.
func respondSuccess(w http.ResponseWriter, data interface{}, start time.Time) {
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: statusSuccess,
		Data:   data,
		Metadata: models.Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}

// respondError sends an error envelope. err is logged, never returned to
// the client.
func respondError(w http.ResponseWriter, status int, code, message string, err error) {
	if err != nil {
		logging.Error().Str("code", code).Str("error", sanitizeLogValue(err.Error())).Msg("API Error")
	}

	respondJSON(w, status, &models.APIResponse{
		Status:   statusError,
		Metadata: models.Metadata{Timestamp: time.Now()},
		Error: &models.APIError{
			Code:    code,
			Message: message,
		},
	})
}

// respondValidation sends a 400 with per-field details.
func respondValidation(w http.ResponseWriter, verr *validation.RequestValidationError) {
	apiErr := verr.ToAPIError()
	respondJSON(w, http.StatusBadRequest, &models.APIResponse{
		Status:   statusError,
		Metadata: models.Metadata{Timestamp: time.Now()},
		Error: &models.APIError{
			Code:    apiErr.Code,
			Message: apiErr.Message,
			Details: apiErr.Details,
		},
	})
}

// respondPlanError maps planner errors onto envelope codes.
func respondPlanError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, planner.ErrDisabled):
		respondError(w, http.StatusConflict, codeDisabled, "Today Watch is disabled", nil)
	case errors.Is(err, planner.ErrNoPlan):
		respondError(w, http.StatusNotFound, codeNotFound, "No plan available", nil)
	case errors.Is(err, planner.ErrNotFound):
		respondError(w, http.StatusNotFound, codeNotFound, "Content not found", nil)
	case errors.Is(err, planner.ErrRefreshThrottled):
		respondError(w, http.StatusTooManyRequests, codeRateLimited, "Refresh is throttled", nil)
	default:
		respondError(w, http.StatusInternalServerError, codeInternal, "Internal server error", err)
	}
}

// decodeAndValidate reads a JSON body into v and validates it. It writes
// the error response itself and reports whether the handler may go on.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		respondError(w, http.StatusRequestEntityTooLarge, codeValidation, "Request body too large", nil)
		return false
	}
	if len(body) == 0 {
		respondError(w, http.StatusBadRequest, codeValidation, "Request body is required", nil)
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, "Invalid JSON body", nil)
		return false
	}
	if verr := validation.ValidateStruct(v); verr != nil {
		respondValidation(w, verr)
		return false
	}
	return true
}
