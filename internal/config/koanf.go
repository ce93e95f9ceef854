// Today Watch - Local Video Recommendation and Queue Planning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/todaywatch

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/todaywatch/internal/eyecare"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/todaywatch/config.yaml",
	"/etc/todaywatch/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8686,
			Host:            "0.0.0.0",
			Timeout:         30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			Environment:     "development",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Database: DatabaseConfig{
			Path:      "/data/todaywatch.duckdb",
			MaxMemory: "512MB",
			Threads:   0, // 0 = use runtime.NumCPU()
		},
		Storage: StorageConfig{
			Backend: "badger",
			Path:    "/data/signals",
		},
		TodayWatch: TodayWatchConfig{
			HistoryCacheTTL:         2 * time.Minute,
			RefreshInterval:         3 * time.Second,
			RefreshBurst:            1,
			RebuildInterval:         15 * time.Minute,
			CandidateLimit:          500,
			CandidateMaxAge:         72 * time.Hour,
			PruneInterval:           time.Hour,
			BreakerMaxRequests:      1,
			BreakerInterval:         time.Minute,
			BreakerTimeout:          30 * time.Second,
			BreakerFailureThreshold: 3,
		},
		EyeCare: eyecare.DefaultWindow(),
		Events: EventsConfig{
			Enabled:                    true,
			Backend:                    "gochannel",
			RouterRetryCount:           3,
			RouterRetryInitialInterval: 100 * time.Millisecond,
			RouterDeduplicationEnabled: true,
			RouterDeduplicationTTL:     5 * time.Minute,
			RouterPoisonQueueEnabled:   true,
			RouterPoisonQueueTopic:     "todaywatch.poison",
			RouterThrottlePerSecond:    0, // Unlimited
			RouterCloseTimeout:         30 * time.Second,
		},
		NATS: NATSConfig{
			URL:                 "nats://127.0.0.1:4222",
			EmbeddedServer:      true,
			StoreDir:            "/data/nats/jetstream",
			MaxMemory:           256 << 20, // 256MB
			MaxStore:            1 << 30,   // 1GB
			StreamRetentionDays: 7,
			SubscribersCount:    2,
			DurableName:         "todaywatch",
			QueueGroup:          "todaywatch-ingest",
		},
		Security: SecurityConfig{
			RateLimitReqs:     120,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
			CORSOrigins:       []string{"*"},
			TrustedProxies:    []string{},
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in sensible defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any setting
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"security.cors_origins",
	"security.trusted_proxies",
}

// processSliceFields converts comma-separated env values to slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps lower-cased environment variable names to koanf paths.
// Unmapped variables are ignored.
var envMappings = map[string]string{
	// Server
	"http_port":             "server.port",
	"http_host":             "server.host",
	"http_timeout":          "server.timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"environment":           "server.environment",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Database
	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",

	// Storage
	"storage_backend": "storage.backend",
	"storage_path":    "storage.path",

	// Today Watch planner
	"history_cache_ttl":         "today_watch.history_cache_ttl",
	"refresh_interval":          "today_watch.refresh_interval",
	"refresh_burst":             "today_watch.refresh_burst",
	"rebuild_interval":          "today_watch.rebuild_interval",
	"candidate_limit":           "today_watch.candidate_limit",
	"candidate_max_age":         "today_watch.candidate_max_age",
	"prune_interval":            "today_watch.prune_interval",
	"breaker_max_requests":      "today_watch.breaker_max_requests",
	"breaker_interval":          "today_watch.breaker_interval",
	"breaker_timeout":           "today_watch.breaker_timeout",
	"breaker_failure_threshold": "today_watch.breaker_failure_threshold",

	// Eye care
	"eyecare_enabled":       "eyecare.enabled",
	"eyecare_force_enabled": "eyecare.force_enabled",
	"eyecare_start_hour":    "eyecare.start_hour",
	"eyecare_end_hour":      "eyecare.end_hour",
	"eyecare_location":      "eyecare.location",

	// Events
	"events_enabled":             "events.enabled",
	"events_backend":             "events.backend",
	"events_retry_count":         "events.router_retry_count",
	"events_retry_interval":      "events.router_retry_initial_interval",
	"events_dedup_enabled":       "events.router_deduplication_enabled",
	"events_dedup_ttl":           "events.router_deduplication_ttl",
	"events_poison_enabled":      "events.router_poison_queue_enabled",
	"events_poison_topic":        "events.router_poison_queue_topic",
	"events_throttle_per_second": "events.router_throttle_per_second",
	"events_close_timeout":       "events.router_close_timeout",

	// NATS
	"nats_url":            "nats.url",
	"nats_embedded":       "nats.embedded_server",
	"nats_store_dir":      "nats.store_dir",
	"nats_max_memory":     "nats.max_memory",
	"nats_max_store":      "nats.max_store",
	"nats_retention_days": "nats.stream_retention_days",
	"nats_subscribers":    "nats.subscribers_count",
	"nats_durable_name":   "nats.durable_name",
	"nats_queue_group":    "nats.queue_group",

	// Security
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"cors_origins":        "security.cors_origins",
	"trusted_proxies":     "security.trusted_proxies",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - HTTP_PORT -> server.port
//   - DUCKDB_PATH -> database.path
//   - EYECARE_START_HOUR -> eyecare.start_hour
//   - NATS_EMBEDDED -> nats.embedded_server
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
