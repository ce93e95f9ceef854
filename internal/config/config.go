// Today Watch - Local Video Recommendation and Queue Planning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/todaywatch

package config

import (
	"time"

	"github.com/tomtom215/todaywatch/internal/eyecare"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Logging    LoggingConfig    `koanf:"logging"`
	Database   DatabaseConfig   `koanf:"database"`
	Storage    StorageConfig    `koanf:"storage"`
	TodayWatch TodayWatchConfig `koanf:"today_watch"`
	EyeCare    eyecare.Window   `koanf:"eyecare"`
	Events     EventsConfig     `koanf:"events"`
	NATS       NATSConfig       `koanf:"nats"`
	Security   SecurityConfig   `koanf:"security"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	Host            string        `koanf:"host"`
	Timeout         time.Duration `koanf:"timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	Environment     string        `koanf:"environment" validate:"oneof=development staging production"`
}

// LoggingConfig holds zerolog settings.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is json or console.
	Format string `koanf:"format"`

	// Caller includes file and line in each entry.
	Caller bool `koanf:"caller"`
}

// DatabaseConfig holds DuckDB settings for history and candidates.
type DatabaseConfig struct {
	Path      string `koanf:"path" validate:"required"`
	MaxMemory string `koanf:"max_memory" validate:"required"`
	Threads   int    `koanf:"threads" validate:"min=0,max=256"` // 0 = runtime.NumCPU()
}

// StorageConfig selects the personalization signal store.
type StorageConfig struct {
	// Backend is "badger" (persistent) or "memory".
	Backend string `koanf:"backend" validate:"oneof=badger memory"`

	// Path is the BadgerDB directory, required for the badger backend.
	Path string `koanf:"path"`
}

// TodayWatchConfig tunes the planner service.
type TodayWatchConfig struct {
	// HistoryCacheTTL is how long a sampled history is reused between rebuilds.
	HistoryCacheTTL time.Duration `koanf:"history_cache_ttl" validate:"gte=0"`

	// RefreshInterval is the minimum spacing between manual refreshes.
	RefreshInterval time.Duration `koanf:"refresh_interval" validate:"gt=0"`

	// RefreshBurst is how many manual refreshes may happen back to back.
	RefreshBurst int `koanf:"refresh_burst" validate:"min=1,max=10"`

	// RebuildInterval drives the periodic rebuild. 0 disables it.
	RebuildInterval time.Duration `koanf:"rebuild_interval" validate:"gte=0"`

	// CandidateLimit bounds the pool read per rebuild.
	CandidateLimit int `koanf:"candidate_limit" validate:"min=1,max=5000"`

	// CandidateMaxAge is how long an ingested candidate stays in the pool.
	CandidateMaxAge time.Duration `koanf:"candidate_max_age" validate:"gt=0"`

	// PruneInterval is how often stale candidates are removed.
	PruneInterval time.Duration `koanf:"prune_interval" validate:"gt=0"`

	// Source circuit breaker
	BreakerMaxRequests      uint32        `koanf:"breaker_max_requests" validate:"min=1"`
	BreakerInterval         time.Duration `koanf:"breaker_interval" validate:"gte=0"`
	BreakerTimeout          time.Duration `koanf:"breaker_timeout" validate:"gt=0"`
	BreakerFailureThreshold uint32        `koanf:"breaker_failure_threshold" validate:"min=1"`
}

// EventsConfig configures the ingestion bus and its router middleware.
type EventsConfig struct {
	// Enabled routes ingestion through the bus. When false the API writes
	// to the database directly.
	Enabled bool `koanf:"enabled"`

	// Backend is "gochannel" (in-process) or "nats".
	Backend string `koanf:"backend" validate:"oneof=gochannel nats"`

	RouterRetryCount           int           `koanf:"router_retry_count" validate:"min=0,max=20"`
	RouterRetryInitialInterval time.Duration `koanf:"router_retry_initial_interval" validate:"gt=0"`
	RouterDeduplicationEnabled bool          `koanf:"router_deduplication_enabled"`
	RouterDeduplicationTTL     time.Duration `koanf:"router_deduplication_ttl" validate:"gt=0"`
	RouterPoisonQueueEnabled   bool          `koanf:"router_poison_queue_enabled"`
	RouterPoisonQueueTopic     string        `koanf:"router_poison_queue_topic"`
	RouterThrottlePerSecond    int           `koanf:"router_throttle_per_second" validate:"min=0"`
	RouterCloseTimeout         time.Duration `koanf:"router_close_timeout" validate:"gt=0"`
}

// NATSConfig configures the NATS JetStream backend.
type NATSConfig struct {
	// URL is the NATS server connection URL.
	URL string `koanf:"url"`

	// EmbeddedServer starts an in-process JetStream server listening on URL.
	EmbeddedServer bool `koanf:"embedded_server"`

	// StoreDir is the JetStream storage directory for the embedded server.
	StoreDir string `koanf:"store_dir"`

	// MaxMemory and MaxStore bound JetStream resources in bytes.
	MaxMemory int64 `koanf:"max_memory"`
	MaxStore  int64 `koanf:"max_store"`

	// StreamRetentionDays is how long ingestion events are kept.
	StreamRetentionDays int `koanf:"stream_retention_days"`

	// SubscribersCount is the number of concurrent consumers per topic.
	SubscribersCount int `koanf:"subscribers_count"`

	// DurableName prefixes the durable consumer names.
	DurableName string `koanf:"durable_name"`

	// QueueGroup load-balances consumers across instances.
	QueueGroup string `koanf:"queue_group"`
}

// SecurityConfig holds CORS and rate limiting settings.
type SecurityConfig struct {
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	TrustedProxies    []string      `koanf:"trusted_proxies"`
}

// Load loads configuration from defaults, the optional config file and the
// environment.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
