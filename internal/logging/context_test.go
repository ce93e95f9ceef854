// Today Watch - Local Video Recommendation and Queue Planning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/todaywatch

package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestCorrelationID(t *testing.T) {
	ctx := context.Background()
	if got := CorrelationIDFromContext(ctx); got != "" {
		t.Errorf("empty context returned %q", got)
	}

	ctx = ContextWithNewCorrelationID(ctx)
	id := CorrelationIDFromContext(ctx)
	if len(id) != 8 {
		t.Errorf("correlation id %q should be 8 chars", id)
	}

	ctx = ContextWithCorrelationID(ctx, "rebuild1")
	if got := CorrelationIDFromContext(ctx); got != "rebuild1" {
		t.Errorf("got %q, want rebuild1", got)
	}
}

func TestRequestID(t *testing.T) {
	id := GenerateRequestID()
	if len(id) != 36 {
		t.Errorf("request id %q should be a UUID", id)
	}
	ctx := ContextWithRequestID(context.Background(), id)
	if got := RequestIDFromContext(ctx); got != id {
		t.Errorf("got %q, want %q", got, id)
	}
}

func TestCtxAddsIDs(t *testing.T) {
	var buf bytes.Buffer
	ctx := ContextWithLogger(context.Background(), NewTestLogger(&buf))
	ctx = ContextWithCorrelationID(ctx, "abcd1234")
	ctx = ContextWithRequestID(ctx, "req-1")

	Ctx(ctx).Info().Msg("opened")

	out := buf.String()
	for _, want := range []string{`"correlation_id":"abcd1234"`, `"request_id":"req-1"`, `"message":"opened"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s: %q", want, out)
		}
	}
}

func TestCtxWithoutIDs(t *testing.T) {
	var buf bytes.Buffer
	ctx := ContextWithLogger(context.Background(), NewTestLogger(&buf))

	Ctx(ctx).Info().Msg("plain")
	if strings.Contains(buf.String(), "correlation_id") || strings.Contains(buf.String(), "request_id") {
		t.Errorf("unexpected id fields: %q", buf.String())
	}
}
