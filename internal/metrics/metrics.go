// Today Watch - Local Video Recommendation and Queue Planning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/todaywatch

// Package metrics registers the Prometheus collectors exported on /metrics.
//
// Collectors are package globals registered with promauto at init, so any
// package can record without wiring a registry through constructors.
package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Breaker state gauge values.
const (
	BreakerClosed   = 0
	BreakerHalfOpen = 1
	BreakerOpen     = 2
)

var (
	// Plan metrics
	PlanBuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "todaywatch_plan_build_duration_seconds",
			Help:    "Time spent scoring candidates and assembling the queue",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		},
	)

	PlanQueueSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "todaywatch_plan_queue_size",
			Help: "Number of videos in the current plan queue",
		},
	)

	PlanUpRanks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "todaywatch_plan_up_ranks",
			Help: "Number of ranked creators in the current plan",
		},
	)

	PlanRebuilds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todaywatch_plan_rebuilds_total",
			Help: "Plan rebuilds by trigger reason",
		},
		[]string{"reason"}, // "lazy", "forced", "refill", "manual", "dislike", "settings", "clear", "scheduled", "ingest"
	)

	PlanNightSignal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "todaywatch_plan_night_signal",
			Help: "1 when the current plan applied night adjustments",
		},
	)

	QueueConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todaywatch_queue_consumed_total",
			Help: "Queue consumption outcomes",
		},
		[]string{"result"}, // "consumed", "refill", "not_found"
	)

	ManualRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todaywatch_manual_refresh_total",
			Help: "Manual refresh requests",
		},
		[]string{"result"}, // "accepted", "throttled"
	)

	Dislikes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "todaywatch_dislikes_total",
			Help: "Videos marked as disliked",
		},
	)

	WatchProgressSeconds = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "todaywatch_watch_progress_seconds_total",
			Help: "Playback seconds credited to creator signals",
		},
	)

	HistorySampleCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todaywatch_history_sample_cache_total",
			Help: "History sample cache lookups",
		},
		[]string{"result"}, // "hit", "miss"
	)

	// Source circuit breaker
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Requests through the circuit breaker",
		},
		[]string{"name", "result"}, // "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Database
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "DuckDB query errors",
		},
		[]string{"operation", "table"},
	)

	CandidatesPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "todaywatch_candidates_pruned_total",
			Help: "Candidates removed by the pruner",
		},
	)

	// API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of in-flight API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"endpoint"},
	)

	// WebSocket
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of WebSocket clients",
		},
	)

	WSMessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "WebSocket messages broadcast by type",
		},
		[]string{"type"},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_errors_total",
			Help: "WebSocket errors",
		},
		[]string{"error_type"},
	)

	// Events
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todaywatch_events_published_total",
			Help: "Events published to the bus",
		},
		[]string{"topic"},
	)

	EventsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todaywatch_events_processed_total",
			Help: "Events handled by the router",
		},
		[]string{"topic", "result"}, // "ok", "error", "duplicate"
	)

	EventProcessingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "todaywatch_event_processing_duration_seconds",
			Help:    "Event handler duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"topic"},
	)

	// System
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// RecordPlanBuild records a completed plan build.
func RecordPlanBuild(reason string, duration time.Duration, queueSize, upRanks int, night bool) {
	PlanRebuilds.WithLabelValues(reason).Inc()
	PlanBuildDuration.Observe(duration.Seconds())
	PlanQueueSize.Set(float64(queueSize))
	PlanUpRanks.Set(float64(upRanks))
	if night {
		PlanNightSignal.Set(1)
	} else {
		PlanNightSignal.Set(0)
	}
}

// RecordPlanCleared resets the plan gauges when no plan is available.
func RecordPlanCleared() {
	PlanQueueSize.Set(0)
	PlanUpRanks.Set(0)
	PlanNightSignal.Set(0)
}

// RecordConsume records the outcome of consuming a queued video.
func RecordConsume(found, refill bool) {
	switch {
	case !found:
		QueueConsumed.WithLabelValues("not_found").Inc()
	case refill:
		QueueConsumed.WithLabelValues("refill").Inc()
	default:
		QueueConsumed.WithLabelValues("consumed").Inc()
	}
}

// RecordDBQuery records a DuckDB query.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordAPIRequest records an API request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the in-flight gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordBreakerTransition records a breaker state change.
func RecordBreakerTransition(name, from, to string) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
	CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
}

func breakerStateValue(state string) float64 {
	switch strings.ToLower(state) {
	case "open":
		return BreakerOpen
	case "half-open", "half_open":
		return BreakerHalfOpen
	default:
		return BreakerClosed
	}
}

// RecordEvent records a handled event.
func RecordEvent(topic, result string, duration time.Duration) {
	EventsProcessed.WithLabelValues(topic, result).Inc()
	if duration > 0 {
		EventProcessingDuration.WithLabelValues(topic).Observe(duration.Seconds())
	}
}
