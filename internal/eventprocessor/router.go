// Today Watch - Local Video Recommendation and Queue Planning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/todaywatch

package eventprocessor

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"github.com/tomtom215/todaywatch/internal/cache"
	"github.com/tomtom215/todaywatch/internal/metrics"
)

const dedupCapacity = 10000

// Router wraps the Watermill router with the ingestion middleware stack.
type Router struct {
	router *message.Router
	config RouterConfig
	logger watermill.LoggerAdapter
	dedup  *cache.LRUCache

	running atomic.Bool
}

// NewRouter creates a router. Middleware runs outer to inner:
//  1. Poison queue (when poisonPublisher is set and a topic is configured)
//  2. Throttle (when enabled)
//  3. Deduplicator keyed on the event ID (when enabled), which forgets
//     the ID again when the handler fails so a redelivery is processed
//  4. Retry with exponential backoff
//  5. Metrics
//  6. Recoverer
func NewRouter(cfg *RouterConfig, poisonPublisher message.Publisher, logger watermill.LoggerAdapter) (*Router, error) {
	if logger == nil {
		logger = NewWatermillLogger()
	}
	if cfg == nil {
		def := DefaultRouterConfig()
		cfg = &def
	}

	wmRouter, err := message.NewRouter(message.RouterConfig{CloseTimeout: cfg.CloseTimeout}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill router: %w", err)
	}

	r := &Router{
		router: wmRouter,
		config: *cfg,
		logger: logger,
	}

	if poisonPublisher != nil && cfg.PoisonQueueTopic != "" {
		poison, err := middleware.PoisonQueue(poisonPublisher, cfg.PoisonQueueTopic)
		if err != nil {
			return nil, fmt.Errorf("create poison queue middleware: %w", err)
		}
		wmRouter.AddMiddleware(poison)
	}

	if cfg.ThrottlePerSecond > 0 {
		wmRouter.AddMiddleware(middleware.NewThrottle(cfg.ThrottlePerSecond, time.Second).Middleware)
	}

	if cfg.DeduplicationEnabled {
		r.dedup = cache.NewLRUCache(dedupCapacity, cfg.DeduplicationTTL)
		dedup := middleware.Deduplicator{
			KeyFactory: func(msg *message.Message) (string, error) {
				return msg.UUID, nil
			},
			Repository: r.dedup,
		}
		wmRouter.AddMiddleware(dedup.Middleware, r.forgetFailed)
	}

	retry := middleware.Retry{
		MaxRetries:      cfg.RetryMaxRetries,
		InitialInterval: cfg.RetryInitialInterval,
		MaxInterval:     cfg.RetryMaxInterval,
		Multiplier:      cfg.RetryMultiplier,
		Logger:          logger,
	}
	wmRouter.AddMiddleware(retry.Middleware, instrument, middleware.Recoverer)

	return r, nil
}

// forgetFailed removes the event ID recorded by the Deduplicator when the
// handler still fails after retries. The Deduplicator records IDs before
// the handler runs.
func (r *Router) forgetFailed(h message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		out, err := h(msg)
		if err != nil {
			r.dedup.Remove(msg.UUID)
		}
		return out, err
	}
}

// instrument records per-topic processing metrics.
func instrument(h message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		start := time.Now()
		topic := message.SubscribeTopicFromCtx(msg.Context())
		out, err := h(msg)
		result := "success"
		if err != nil {
			result = "error"
		}
		metrics.RecordEvent(topic, result, time.Since(start))
		return out, err
	}
}

// AddConsumerHandler registers a handler that publishes nothing.
func (r *Router) AddConsumerHandler(name, topic string, subscriber message.Subscriber, handler message.NoPublishHandlerFunc) {
	r.router.AddConsumerHandler(name, topic, subscriber, handler)
}

// Serve runs the router until ctx is canceled. It implements
// suture.Service.
func (r *Router) Serve(ctx context.Context) error {
	r.running.Store(true)
	defer r.running.Store(false)
	if err := r.router.Run(ctx); err != nil {
		return fmt.Errorf("event router: %w", err)
	}
	return ctx.Err()
}

// Running is closed once every handler is subscribed.
func (r *Router) Running() <-chan struct{} {
	return r.router.Running()
}

// IsRunning reports whether the router is processing messages.
func (r *Router) IsRunning() bool {
	return r.running.Load()
}

// Close stops the router, waiting up to CloseTimeout for handlers.
func (r *Router) Close() error {
	return r.router.Close()
}

// DedupEntries returns the number of tracked event IDs.
func (r *Router) DedupEntries() int {
	if r.dedup == nil {
		return 0
	}
	return r.dedup.Len()
}

func (r *Router) String() string {
	return "event-router"
}
