// Today Watch - Local Video Recommendation and Queue Planning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/todaywatch

package eventprocessor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/todaywatch/internal/logging"
	"github.com/tomtom215/todaywatch/internal/metrics"
	"github.com/tomtom215/todaywatch/internal/models"
)

const publisherBreakerName = "event-publisher"

// ErrPublisherClosed is returned after Close.
var ErrPublisherClosed = errors.New("publisher is closed")

// Publisher publishes ingestion events behind a circuit breaker. It
// satisfies the same ingestion interface as Processor so the API can
// switch between bus and direct writes.
type Publisher struct {
	publisher message.Publisher
	breaker   *gobreaker.CircuitBreaker[struct{}]

	mu     sync.RWMutex
	closed bool
}

// NewPublisher wraps a Watermill publisher.
func NewPublisher(pub message.Publisher) *Publisher {
	logger := logging.WithComponent("event-publisher")
	return &Publisher{
		publisher: pub,
		breaker: gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
			Name:        publisherBreakerName,
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn().
					Str("breaker", name).
					Str("from", from.String()).
					Str("to", to.String()).
					Msg("Circuit breaker state changed")
				metrics.RecordBreakerTransition(name, from.String(), to.String())
			},
		}),
	}
}

// Publish wraps payload in an Event and publishes it on topic. The
// correlation id in ctx, if any, travels in the message metadata.
func (p *Publisher) Publish(ctx context.Context, topic string, payload interface{}) (*Event, error) {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return nil, ErrPublisherClosed
	}

	event, err := NewEvent(topic, payload)
	if err != nil {
		return nil, err
	}
	msg, err := event.Message()
	if err != nil {
		return nil, err
	}
	if id := logging.CorrelationIDFromContext(ctx); id != "" {
		middleware.SetCorrelationID(id, msg)
		msg.Metadata.Set(metadataCorrelationID, id)
	}
	msg.SetContext(ctx)

	_, err = p.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, p.publisher.Publish(topic, msg)
	})
	if err != nil {
		return nil, fmt.Errorf("publish %s: %w", topic, err)
	}
	metrics.EventsPublished.WithLabelValues(topic).Inc()
	return event, nil
}

// IngestHistory publishes a history batch.
func (p *Publisher) IngestHistory(ctx context.Context, batch *models.HistoryBatch) error {
	_, err := p.Publish(ctx, TopicHistory, batch)
	return err
}

// IngestCandidates publishes a candidate batch.
func (p *Publisher) IngestCandidates(ctx context.Context, batch *models.CandidateBatch) error {
	_, err := p.Publish(ctx, TopicCandidates, batch)
	return err
}

// Close stops accepting events. The underlying publisher belongs to the Bus.
func (p *Publisher) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}
