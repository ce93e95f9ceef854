// Today Watch - Local Video Recommendation and Queue Planning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/todaywatch

package eventprocessor

import (
	"time"

	"github.com/tomtom215/todaywatch/internal/config"
)

// Backend names.
const (
	BackendGoChannel = "gochannel"
	BackendNATS      = "nats"
)

// RouterConfig holds the middleware settings of the Watermill router.
type RouterConfig struct {
	// CloseTimeout is how long to wait for handlers to finish when closing.
	CloseTimeout time.Duration

	// Retry configuration
	RetryMaxRetries      int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
	RetryMultiplier      float64

	// ThrottlePerSecond limits handled messages per second, 0 = disabled.
	ThrottlePerSecond int64

	// PoisonQueueTopic receives messages that exhausted their retries.
	// Empty disables the poison queue.
	PoisonQueueTopic string

	// Deduplication drops redelivered events by envelope ID.
	DeduplicationEnabled bool
	DeduplicationTTL     time.Duration
}

// DefaultRouterConfig returns production defaults for the router.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		CloseTimeout:         30 * time.Second,
		RetryMaxRetries:      3,
		RetryInitialInterval: 100 * time.Millisecond,
		RetryMaxInterval:     10 * time.Second,
		RetryMultiplier:      2.0,
		PoisonQueueTopic:     "todaywatch.poison",
		DeduplicationEnabled: true,
		DeduplicationTTL:     5 * time.Minute,
	}
}

// NATSConfig holds the JetStream backend settings.
type NATSConfig struct {
	URL            string
	EmbeddedServer bool
	StoreDir       string
	MaxMemory      int64
	MaxStore       int64

	// StreamName is the JetStream stream holding every ingestion topic.
	StreamName string
	MaxAge     time.Duration

	SubscribersCount int
	DurableName      string
	QueueGroup       string

	AckWaitTimeout time.Duration
	MaxDeliver     int
	MaxReconnects  int
	ReconnectWait  time.Duration
}

// BusConfig selects and configures the backend.
type BusConfig struct {
	Backend string
	Router  RouterConfig
	NATS    NATSConfig
}

// DefaultBusConfig returns an in-process bus.
func DefaultBusConfig() BusConfig {
	return BusConfig{
		Backend: BackendGoChannel,
		Router:  DefaultRouterConfig(),
		NATS: NATSConfig{
			URL:              "nats://127.0.0.1:4222",
			StreamName:       "TODAYWATCH",
			MaxAge:           7 * 24 * time.Hour,
			SubscribersCount: 1,
			DurableName:      "todaywatch",
			AckWaitTimeout:   30 * time.Second,
			MaxDeliver:       5,
			MaxReconnects:    -1,
			ReconnectWait:    2 * time.Second,
		},
	}
}

// BusConfigFrom maps application config onto BusConfig.
func BusConfigFrom(cfg *config.Config) BusConfig {
	bc := DefaultBusConfig()
	if cfg.Events.Backend != "" {
		bc.Backend = cfg.Events.Backend
	}

	r := &bc.Router
	r.CloseTimeout = cfg.Events.RouterCloseTimeout
	r.RetryMaxRetries = cfg.Events.RouterRetryCount
	r.RetryInitialInterval = cfg.Events.RouterRetryInitialInterval
	r.ThrottlePerSecond = int64(cfg.Events.RouterThrottlePerSecond)
	r.DeduplicationEnabled = cfg.Events.RouterDeduplicationEnabled
	r.DeduplicationTTL = cfg.Events.RouterDeduplicationTTL
	r.PoisonQueueTopic = ""
	if cfg.Events.RouterPoisonQueueEnabled {
		r.PoisonQueueTopic = cfg.Events.RouterPoisonQueueTopic
	}

	n := &bc.NATS
	n.URL = cfg.NATS.URL
	n.EmbeddedServer = cfg.NATS.EmbeddedServer
	n.StoreDir = cfg.NATS.StoreDir
	n.MaxMemory = cfg.NATS.MaxMemory
	n.MaxStore = cfg.NATS.MaxStore
	if cfg.NATS.StreamRetentionDays > 0 {
		n.MaxAge = time.Duration(cfg.NATS.StreamRetentionDays) * 24 * time.Hour
	}
	if cfg.NATS.SubscribersCount > 0 {
		n.SubscribersCount = cfg.NATS.SubscribersCount
	}
	if cfg.NATS.DurableName != "" {
		n.DurableName = cfg.NATS.DurableName
	}
	n.QueueGroup = cfg.NATS.QueueGroup
	return bc
}
