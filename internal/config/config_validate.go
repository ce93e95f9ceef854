// Today Watch - Local Video Recommendation and Queue Planning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/todaywatch

package config

import (
	"fmt"
	"time"

	"github.com/tomtom215/todaywatch/internal/validation"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateSections,
		c.validateLogging,
		c.validateStorage,
		c.validateEyeCare,
		c.validateEvents,
		c.validateNATS,
		c.validateSecurity,
	}

	for _, validator := range validators {
		if err := validator(); err != nil {
			return err
		}
	}
	return nil
}

// validateSections runs the struct tag rules of every section.
func (c *Config) validateSections() error {
	sections := []struct {
		name  string
		value interface{}
	}{
		{"server", &c.Server},
		{"database", &c.Database},
		{"storage", &c.Storage},
		{"today_watch", &c.TodayWatch},
		{"events", &c.Events},
	}
	for _, s := range sections {
		if verr := validation.ValidateStruct(s.value); verr != nil {
			return fmt.Errorf("%s: %w", s.name, verr)
		}
	}
	return nil
}

var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

// validateLogging validates the log level and format
func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}

// validateStorage requires a path for the persistent backend
func (c *Config) validateStorage() error {
	if c.Storage.Backend == "badger" && c.Storage.Path == "" {
		return fmt.Errorf("STORAGE_PATH is required when STORAGE_BACKEND=badger")
	}
	return nil
}

// validateEyeCare validates the night window
func (c *Config) validateEyeCare() error {
	if err := c.EyeCare.Validate(); err != nil {
		return fmt.Errorf("eyecare: %w", err)
	}
	return nil
}

// validateEvents requires a poison topic when the poison queue is on
func (c *Config) validateEvents() error {
	if c.Events.RouterPoisonQueueEnabled && c.Events.RouterPoisonQueueTopic == "" {
		return fmt.Errorf("EVENTS_POISON_TOPIC is required when the poison queue is enabled")
	}
	return nil
}

// NATS limit constants
const (
	natsMinMemory      = 64 * 1024 * 1024  // 64MB
	natsMinStore       = 100 * 1024 * 1024 // 100MB
	natsMaxRetention   = 365
	natsMinRetention   = 1
	natsMaxSubscribers = 32
)

// validateNATS validates NATS settings when the nats backend is selected
func (c *Config) validateNATS() error {
	if !c.Events.Enabled || c.Events.Backend != "nats" {
		return nil
	}

	if err := validateNATSURL(c.NATS.URL); err != nil {
		return fmt.Errorf("NATS_URL is invalid: %w", err)
	}
	if c.NATS.EmbeddedServer && c.NATS.StoreDir == "" {
		return fmt.Errorf("NATS_STORE_DIR is required when NATS_EMBEDDED=true")
	}
	if c.NATS.MaxMemory < natsMinMemory {
		return fmt.Errorf("NATS_MAX_MEMORY must be at least 64MB (67108864 bytes)")
	}
	if c.NATS.MaxStore < natsMinStore {
		return fmt.Errorf("NATS_MAX_STORE must be at least 100MB (104857600 bytes)")
	}
	if c.NATS.StreamRetentionDays < natsMinRetention || c.NATS.StreamRetentionDays > natsMaxRetention {
		return fmt.Errorf("NATS_RETENTION_DAYS must be between 1 and 365")
	}
	if c.NATS.SubscribersCount < 1 || c.NATS.SubscribersCount > natsMaxSubscribers {
		return fmt.Errorf("NATS_SUBSCRIBERS must be between 1 and 32")
	}
	if c.NATS.DurableName == "" {
		return fmt.Errorf("NATS_DURABLE_NAME is required")
	}
	return nil
}

// Rate limit bounds
const (
	maxRateLimitReqs   = 100000
	minRateLimitWindow = time.Second
	maxRateLimitWindow = time.Hour
)

// validateSecurity validates rate limiting bounds and CORS
func (c *Config) validateSecurity() error {
	if !c.Security.RateLimitDisabled {
		if c.Security.RateLimitReqs < 1 || c.Security.RateLimitReqs > maxRateLimitReqs {
			return fmt.Errorf("RATE_LIMIT_REQUESTS must be between 1 and %d", maxRateLimitReqs)
		}
		if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be between 1s and 1h")
		}
	}

	if c.Server.Environment == "production" {
		for _, origin := range c.Security.CORSOrigins {
			if origin == "*" {
				return fmt.Errorf("CORS_ORIGINS must not contain * in production")
			}
		}
	}
	return nil
}
