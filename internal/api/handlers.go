// Today Watch - Local Video Recommendation and Queue Planning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/todaywatch

// Package api exposes the Today Watch planner over HTTP using the Chi router.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/todaywatch/internal/logging"
	"github.com/tomtom215/todaywatch/internal/models"
	"github.com/tomtom215/todaywatch/internal/planner"
	ws "github.com/tomtom215/todaywatch/internal/websocket"
)

// PlanService is the planner surface the handlers use. *planner.Service
// satisfies it.
type PlanService interface {
	Plan(ctx context.Context) (*models.PlanView, error)
	Rebuild(ctx context.Context, reason planner.Reason) (*models.PlanView, error)
	Refresh(ctx context.Context) (*models.PlanView, error)
	MarkOpened(ctx context.Context, contentID string) (*models.PlanView, error)
	RecordDislike(ctx context.Context, contentID string) (*models.PlanView, error)
	RecordWatchProgress(ctx context.Context, creatorID int64, name, contentID string, positionSec int64) error
	Settings(ctx context.Context) (models.Settings, error)
	UpdateSettings(ctx context.Context, next models.Settings) (models.Settings, error)
	ClearPersonalization(ctx context.Context) (models.Settings, error)
}

// Ingestor accepts history and candidate batches, either by publishing
// them to the event bus or by writing them directly.
type Ingestor interface {
	IngestHistory(ctx context.Context, batch *models.HistoryBatch) error
	IngestCandidates(ctx context.Context, batch *models.CandidateBatch) error
}

// Pinger reports database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds the dependencies of every endpoint.
type Handler struct {
	planner     PlanService
	ingest      Ingestor
	db          Pinger
	hub         *ws.Hub
	corsOrigins []string
	version     string
	startTime   time.Time
	now         func() time.Time
}

// HandlerOption configures optional Handler dependencies.
type HandlerOption func(*Handler)

// WithIngestor sets the batch ingestion path.
func WithIngestor(i Ingestor) HandlerOption {
	return func(h *Handler) { h.ingest = i }
}

// WithDatabase sets the readiness probe target.
func WithDatabase(db Pinger) HandlerOption {
	return func(h *Handler) { h.db = db }
}

// WithHub enables the websocket endpoint.
func WithHub(hub *ws.Hub) HandlerOption {
	return func(h *Handler) { h.hub = hub }
}

// WithAllowedOrigins sets the origins accepted for websocket upgrades.
func WithAllowedOrigins(origins []string) HandlerOption {
	return func(h *Handler) { h.corsOrigins = origins }
}

// WithVersion sets the version reported by the health endpoint.
func WithVersion(v string) HandlerOption {
	return func(h *Handler) { h.version = v }
}

// NewHandler creates a Handler.
func NewHandler(plans PlanService, opts ...HandlerOption) *Handler {
	h := &Handler{
		planner:   plans,
		startTime: time.Now(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// WebSocket upgrades the connection and registers the client with the hub.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		logging.Warn().Msg("WebSocket connection rejected: hub not initialized")
		respondError(w, http.StatusServiceUnavailable, codeUnavailable, "WebSocket service unavailable", nil)
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("WebSocket upgrade error")
		return
	}

	ws.NewClient(h.hub, conn).Start()
}

// checkWebSocketOrigin accepts configured origins. Requests without an
// Origin header come from non-browser clients on the local machine.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.corsOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	logging.Warn().Str("origin", sanitizeLogValue(origin)).Msg("WebSocket connection rejected from unauthorized origin")
	return false
}
