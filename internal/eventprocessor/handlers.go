// Today Watch - Local Video Recommendation and Queue Planning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/todaywatch

package eventprocessor

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/rs/zerolog"

	"github.com/tomtom215/todaywatch/internal/logging"
	"github.com/tomtom215/todaywatch/internal/models"
	"github.com/tomtom215/todaywatch/internal/planner"
	"github.com/tomtom215/todaywatch/internal/todaywatch"
	"github.com/tomtom215/todaywatch/internal/validation"
)

// HistoryWriter persists ingested history and candidates.
type HistoryWriter interface {
	UpsertHistory(ctx context.Context, items []todaywatch.WatchedItem) (int, error)
	UpsertCandidates(ctx context.Context, items []todaywatch.CandidateItem, replace bool) (int, error)
}

// PlanActions is the subset of *planner.Service the handlers drive.
type PlanActions interface {
	InvalidateHistory()
	RebuildIfActive(ctx context.Context, reason planner.Reason) error
	MarkOpened(ctx context.Context, contentID string) (*models.PlanView, error)
	RecordDislike(ctx context.Context, contentID string) (*models.PlanView, error)
	RecordWatchProgress(ctx context.Context, creatorID int64, name, contentID string, positionSec int64) error
}

// Processor applies ingestion payloads to the database and the planner.
// The API calls it directly when the bus is disabled; the router calls
// it for every consumed event otherwise.
type Processor struct {
	writer  HistoryWriter
	planner PlanActions
	logger  zerolog.Logger
}

// NewProcessor creates a Processor.
func NewProcessor(writer HistoryWriter, plans PlanActions) *Processor {
	return &Processor{
		writer:  writer,
		planner: plans,
		logger:  logging.WithComponent("eventprocessor"),
	}
}

// IngestHistory stores a history batch and refreshes the active plan.
func (p *Processor) IngestHistory(ctx context.Context, batch *models.HistoryBatch) error {
	items := make([]todaywatch.WatchedItem, 0, len(batch.Items))
	for i := range batch.Items {
		items = append(items, batch.Items[i].ToWatched())
	}
	n, err := p.writer.UpsertHistory(ctx, items)
	if err != nil {
		return fmt.Errorf("store history: %w", err)
	}
	p.planner.InvalidateHistory()
	logging.Ctx(ctx).Debug().Int("items", n).Msg("History batch ingested")
	return p.rebuild(ctx)
}

// IngestCandidates stores a candidate batch and refreshes the active plan.
func (p *Processor) IngestCandidates(ctx context.Context, batch *models.CandidateBatch) error {
	items := make([]todaywatch.CandidateItem, 0, len(batch.Items))
	for i := range batch.Items {
		items = append(items, batch.Items[i].ToCandidate())
	}
	n, err := p.writer.UpsertCandidates(ctx, items, batch.Replace)
	if err != nil {
		return fmt.Errorf("store candidates: %w", err)
	}
	logging.Ctx(ctx).Debug().Int("items", n).Bool("replace", batch.Replace).Msg("Candidate batch ingested")
	return p.rebuild(ctx)
}

func (p *Processor) rebuild(ctx context.Context) error {
	if err := p.planner.RebuildIfActive(ctx, planner.ReasonIngest); err != nil {
		return fmt.Errorf("rebuild after ingest: %w", err)
	}
	return nil
}

// Register subscribes one handler per topic on r.
func (p *Processor) Register(r *Router, subscriber message.Subscriber) {
	r.AddConsumerHandler("history", TopicHistory, subscriber, p.handleHistory)
	r.AddConsumerHandler("candidates", TopicCandidates, subscriber, p.handleCandidates)
	r.AddConsumerHandler("progress", TopicProgress, subscriber, p.handleProgress)
	r.AddConsumerHandler("opened", TopicOpened, subscriber, p.handleOpened)
	r.AddConsumerHandler("dislike", TopicDislike, subscriber, p.handleDislike)
}

func (p *Processor) handleHistory(msg *message.Message) error {
	var batch models.HistoryBatch
	ctx, err := p.decode(msg, &batch)
	if err != nil {
		return err
	}
	return p.IngestHistory(ctx, &batch)
}

func (p *Processor) handleCandidates(msg *message.Message) error {
	var batch models.CandidateBatch
	ctx, err := p.decode(msg, &batch)
	if err != nil {
		return err
	}
	return p.IngestCandidates(ctx, &batch)
}

func (p *Processor) handleProgress(msg *message.Message) error {
	var req models.ProgressRequest
	ctx, err := p.decode(msg, &req)
	if err != nil {
		return err
	}
	return p.planner.RecordWatchProgress(ctx, req.CreatorID, req.CreatorName, req.ContentID, req.PositionSec)
}

func (p *Processor) handleOpened(msg *message.Message) error {
	var req models.ContentRequest
	ctx, err := p.decode(msg, &req)
	if err != nil {
		return err
	}
	_, err = p.planner.MarkOpened(ctx, req.ContentID)
	return p.settle(ctx, "opened", req.ContentID, err)
}

func (p *Processor) handleDislike(msg *message.Message) error {
	var req models.ContentRequest
	ctx, err := p.decode(msg, &req)
	if err != nil {
		return err
	}
	_, err = p.planner.RecordDislike(ctx, req.ContentID)
	return p.settle(ctx, "dislike", req.ContentID, err)
}

// settle acks planner outcomes that a redelivery cannot change.
func (p *Processor) settle(ctx context.Context, action, contentID string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, planner.ErrNoPlan), errors.Is(err, planner.ErrDisabled), errors.Is(err, planner.ErrNotFound):
		logging.Ctx(ctx).Debug().Err(err).Str("action", action).Str("content_id", contentID).Msg("Event skipped")
		return nil
	default:
		return fmt.Errorf("%s %s: %w", action, contentID, err)
	}
}

// decode unwraps the envelope, validates the payload and returns a
// context carrying the message correlation id and a scoped logger.
func (p *Processor) decode(msg *message.Message, v interface{}) (context.Context, error) {
	ctx := msg.Context()
	event, err := EventFromMessage(msg)
	if err != nil {
		return ctx, err
	}

	correlationID := middleware.MessageCorrelationID(msg)
	if correlationID == "" {
		correlationID = logging.GenerateCorrelationID()
	}
	ctx = logging.ContextWithCorrelationID(ctx, correlationID)
	ctx = logging.ContextWithLogger(ctx, p.logger.With().
		Str("correlation_id", correlationID).
		Str("event_id", event.ID).
		Str("event_type", event.Type).
		Logger())

	if err := event.Decode(v); err != nil {
		return ctx, err
	}
	if verr := validation.ValidateStruct(v); verr != nil {
		return ctx, fmt.Errorf("invalid %s event %s: %w", event.Type, event.ID, verr)
	}
	return ctx, nil
}
