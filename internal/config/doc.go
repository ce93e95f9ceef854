// Today Watch - Local Video Recommendation and Queue Planning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/todaywatch

/*
Package config loads and validates the Today Watch server configuration.

# Configuration Sources

Configuration is layered with Koanf v2, later layers overriding earlier ones:

 1. Built-in defaults (defaultConfig)
 2. An optional YAML file: $CONFIG_PATH, ./config.yaml, ./config.yml,
    /etc/todaywatch/config.yaml or /etc/todaywatch/config.yml
 3. Environment variables, mapped explicitly by envTransformFunc

# Sections

  - server: HTTP listen address and timeouts
  - logging: zerolog level, format and caller info
  - database: DuckDB path and tuning for history and candidates
  - storage: BadgerDB or in-memory store for creator signals, feedback and settings
  - today_watch: planner tuning (history cache, refresh throttle, rebuild and prune intervals, breaker)
  - eyecare: the night window that drives the night signal
  - events: the ingestion bus backend and router middleware
  - nats: NATS JetStream connection and the optional embedded server
  - security: CORS and API rate limiting

# Example

	server:
	  port: 8686
	today_watch:
	  history_cache_ttl: 2m
	  rebuild_interval: 15m
	eyecare:
	  start_hour: 23
	  end_hour: 6
	events:
	  backend: nats
	nats:
	  embedded_server: true

The same values via environment:

	HTTP_PORT=8686 HISTORY_CACHE_TTL=2m EYECARE_START_HOUR=23 EVENTS_BACKEND=nats NATS_EMBEDDED=true

Config is immutable after Load and safe for concurrent reads.
*/
package config
