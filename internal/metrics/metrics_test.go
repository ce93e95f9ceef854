// Today Watch - Local Video Recommendation and Queue Planning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/todaywatch

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordPlanBuild(t *testing.T) {
	before := testutil.ToFloat64(PlanRebuilds.WithLabelValues("manual"))

	RecordPlanBuild("manual", 3*time.Millisecond, 12, 4, true)

	if got := testutil.ToFloat64(PlanRebuilds.WithLabelValues("manual")); got != before+1 {
		t.Errorf("rebuilds = %v, want %v", got, before+1)
	}
	if got := testutil.ToFloat64(PlanQueueSize); got != 12 {
		t.Errorf("queue size = %v, want 12", got)
	}
	if got := testutil.ToFloat64(PlanUpRanks); got != 4 {
		t.Errorf("up ranks = %v, want 4", got)
	}
	if got := testutil.ToFloat64(PlanNightSignal); got != 1 {
		t.Errorf("night signal = %v, want 1", got)
	}

	RecordPlanCleared()
	if got := testutil.ToFloat64(PlanQueueSize); got != 0 {
		t.Errorf("queue size after clear = %v", got)
	}
}

func TestRecordConsume(t *testing.T) {
	tests := []struct {
		name   string
		found  bool
		refill bool
		label  string
	}{
		{"missing id", false, false, "not_found"},
		{"needs refill", true, true, "refill"},
		{"plain consume", true, false, "consumed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := QueueConsumed.WithLabelValues(tt.label)
			before := testutil.ToFloat64(c)
			RecordConsume(tt.found, tt.refill)
			if got := testutil.ToFloat64(c); got != before+1 {
				t.Errorf("%s = %v, want %v", tt.label, got, before+1)
			}
		})
	}
}

func TestRecordDBQuery(t *testing.T) {
	errs := DBQueryErrors.WithLabelValues("select", "candidates")
	before := testutil.ToFloat64(errs)

	RecordDBQuery("select", "candidates", time.Millisecond, nil)
	RecordDBQuery("select", "candidates", time.Millisecond, errors.New("connection closed"))

	if got := testutil.ToFloat64(errs); got != before+1 {
		t.Errorf("errors = %v, want %v", got, before+1)
	}
}

func TestRecordBreakerTransition(t *testing.T) {
	tests := []struct {
		to   string
		want float64
	}{
		{"open", BreakerOpen},
		{"half-open", BreakerHalfOpen},
		{"closed", BreakerClosed},
	}
	for _, tt := range tests {
		t.Run(tt.to, func(t *testing.T) {
			RecordBreakerTransition("history-source", "closed", tt.to)
			if got := testutil.ToFloat64(CircuitBreakerState.WithLabelValues("history-source")); got != tt.want {
				t.Errorf("state = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	if got := testutil.ToFloat64(APIActiveRequests); got != before+1 {
		t.Errorf("active = %v, want %v", got, before+1)
	}
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests); got != before {
		t.Errorf("active = %v, want %v", got, before)
	}
}

func TestRecordEvent(t *testing.T) {
	c := EventsProcessed.WithLabelValues("todaywatch.history", "ok")
	before := testutil.ToFloat64(c)
	RecordEvent("todaywatch.history", "ok", 2*time.Millisecond)
	if got := testutil.ToFloat64(c); got != before+1 {
		t.Errorf("processed = %v, want %v", got, before+1)
	}
}
