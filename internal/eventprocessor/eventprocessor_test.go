// Today Watch - Local Video Recommendation and Queue Planning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/todaywatch

package eventprocessor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/go-cmp/cmp"

	"github.com/tomtom215/todaywatch/internal/config"
	"github.com/tomtom215/todaywatch/internal/models"
	"github.com/tomtom215/todaywatch/internal/planner"
	"github.com/tomtom215/todaywatch/internal/todaywatch"
)

type fakeWriter struct {
	mu         sync.Mutex
	history    []todaywatch.WatchedItem
	candidates []todaywatch.CandidateItem
	calls      int
	failFirst  int
}

func (w *fakeWriter) UpsertHistory(_ context.Context, items []todaywatch.WatchedItem) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls++
	if w.calls <= w.failFirst {
		return 0, errors.New("database locked")
	}
	w.history = append(w.history, items...)
	return len(items), nil
}

func (w *fakeWriter) UpsertCandidates(_ context.Context, items []todaywatch.CandidateItem, replace bool) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls++
	if replace {
		w.candidates = nil
	}
	w.candidates = append(w.candidates, items...)
	return len(items), nil
}

func (w *fakeWriter) historyLen() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.history)
}

func (w *fakeWriter) callCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.calls
}

type fakePlanner struct {
	mu          sync.Mutex
	invalidated int
	rebuilds    []planner.Reason
	opened      []string
	dislikes    []string
	progress    []models.ProgressRequest
	openErr     error
}

func (p *fakePlanner) InvalidateHistory() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.invalidated++
}

func (p *fakePlanner) RebuildIfActive(_ context.Context, reason planner.Reason) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rebuilds = append(p.rebuilds, reason)
	return nil
}

func (p *fakePlanner) MarkOpened(_ context.Context, id string) (*models.PlanView, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.opened = append(p.opened, id)
	return nil, p.openErr
}

func (p *fakePlanner) RecordDislike(_ context.Context, id string) (*models.PlanView, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dislikes = append(p.dislikes, id)
	return &models.PlanView{}, nil
}

func (p *fakePlanner) RecordWatchProgress(_ context.Context, creatorID int64, name, contentID string, pos int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.progress = append(p.progress, models.ProgressRequest{
		CreatorID: creatorID, CreatorName: name, ContentID: contentID, PositionSec: pos,
	})
	return nil
}

type plannerSnapshot struct {
	invalidated int
	rebuilds    []planner.Reason
	opened      []string
	dislikes    []string
	progress    []models.ProgressRequest
}

func (p *fakePlanner) snapshot() plannerSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return plannerSnapshot{
		invalidated: p.invalidated,
		rebuilds:    append([]planner.Reason(nil), p.rebuilds...),
		opened:      append([]string(nil), p.opened...),
		dislikes:    append([]string(nil), p.dislikes...),
		progress:    append([]models.ProgressRequest(nil), p.progress...),
	}
}

type harness struct {
	bus       *Bus
	router    *Router
	publisher *Publisher
	writer    *fakeWriter
	planner   *fakePlanner
	cancel    context.CancelFunc
	done      chan error
}

func testRouterConfig() RouterConfig {
	cfg := DefaultRouterConfig()
	cfg.CloseTimeout = time.Second
	cfg.RetryMaxRetries = 2
	cfg.RetryInitialInterval = time.Millisecond
	cfg.RetryMaxInterval = 5 * time.Millisecond
	return cfg
}

func newHarness(t *testing.T, cfg RouterConfig, writer *fakeWriter, plans *fakePlanner, extra func(*Bus)) *harness {
	t.Helper()
	busCfg := DefaultBusConfig()
	bus, err := NewBus(context.Background(), &busCfg, nil)
	if err != nil {
		t.Fatalf("NewBus: %v", err)
	}

	router, err := NewRouter(&cfg, bus.Publisher(), nil)
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	NewProcessor(writer, plans).Register(router, bus.Subscriber())
	if extra != nil {
		extra(bus)
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &harness{
		bus:       bus,
		router:    router,
		publisher: NewPublisher(bus.Publisher()),
		writer:    writer,
		planner:   plans,
		cancel:    cancel,
		done:      make(chan error, 1),
	}
	go func() { h.done <- router.Serve(ctx) }()

	select {
	case <-router.Running():
	case <-time.After(5 * time.Second):
		t.Fatal("router did not start")
	}

	t.Cleanup(func() {
		cancel()
		select {
		case <-h.done:
		case <-time.After(5 * time.Second):
			t.Error("router did not stop")
		}
		_ = bus.Close()
	})
	return h
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestNewEvent_DecodeRoundTrip(t *testing.T) {
	batch := models.CandidateBatch{
		Items:   []models.CandidateItem{{ContentID: "BV1", Title: "Night walk", CreatorID: 7}},
		Replace: true,
	}
	event, err := NewEvent(TopicCandidates, batch)
	if err != nil {
		t.Fatalf("NewEvent: %v", err)
	}
	if event.ID == "" || event.Timestamp.IsZero() {
		t.Fatalf("event missing id or timestamp: %+v", event)
	}

	msg, err := event.Message()
	if err != nil {
		t.Fatalf("Message: %v", err)
	}
	if msg.UUID != event.ID {
		t.Errorf("message UUID = %q, want event id %q", msg.UUID, event.ID)
	}
	if got := msg.Metadata.Get(metadataEventType); got != TopicCandidates {
		t.Errorf("event_type metadata = %q", got)
	}

	decoded, err := EventFromMessage(msg)
	if err != nil {
		t.Fatalf("EventFromMessage: %v", err)
	}
	var got models.CandidateBatch
	if err := decoded.Decode(&got); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if diff := cmp.Diff(batch, got); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestNewEvent_RequiresType(t *testing.T) {
	if _, err := NewEvent("", nil); err == nil {
		t.Fatal("expected error for empty type")
	}
}

func TestEventFromMessage_InvalidPayload(t *testing.T) {
	msg := message.NewMessage("m1", []byte("not json"))
	if _, err := EventFromMessage(msg); err == nil {
		t.Fatal("expected error for invalid envelope")
	}

	empty := &Event{ID: "e1", Type: TopicOpened}
	var req models.ContentRequest
	if err := empty.Decode(&req); err == nil {
		t.Fatal("expected error for empty payload")
	}
}

func TestRouter_IngestsHistory(t *testing.T) {
	h := newHarness(t, testRouterConfig(), &fakeWriter{}, &fakePlanner{}, nil)

	batch := &models.HistoryBatch{Items: []models.HistoryItem{
		{ContentID: "BV1", CreatorID: 1, ViewAt: 1700000000, Progress: -1, Duration: 600},
		{ContentID: "BV2", CreatorID: 2, ViewAt: 1700000100, Progress: 120, Duration: 600},
	}}
	if err := h.publisher.IngestHistory(context.Background(), batch); err != nil {
		t.Fatalf("IngestHistory: %v", err)
	}

	waitFor(t, "history write", func() bool { return h.writer.historyLen() == 2 })
	waitFor(t, "rebuild", func() bool { return len(h.planner.snapshot().rebuilds) == 1 })

	snap := h.planner.snapshot()
	if snap.invalidated != 1 {
		t.Errorf("invalidated = %d, want 1", snap.invalidated)
	}
	if snap.rebuilds[0] != planner.ReasonIngest {
		t.Errorf("rebuild reason = %q, want %q", snap.rebuilds[0], planner.ReasonIngest)
	}
}

func TestRouter_IngestsCandidatesWithReplace(t *testing.T) {
	writer := &fakeWriter{candidates: []todaywatch.CandidateItem{{ContentID: "old"}}}
	h := newHarness(t, testRouterConfig(), writer, &fakePlanner{}, nil)

	batch := &models.CandidateBatch{
		Items:   []models.CandidateItem{{ContentID: "BV9", Title: "Ambient rain"}},
		Replace: true,
	}
	if err := h.publisher.IngestCandidates(context.Background(), batch); err != nil {
		t.Fatalf("IngestCandidates: %v", err)
	}
	waitFor(t, "candidate write", func() bool { return writer.callCount() == 1 })

	writer.mu.Lock()
	defer writer.mu.Unlock()
	if len(writer.candidates) != 1 || writer.candidates[0].ContentID != "BV9" {
		t.Errorf("candidates = %+v, want only BV9", writer.candidates)
	}
}

func TestRouter_DispatchesPlanActions(t *testing.T) {
	h := newHarness(t, testRouterConfig(), &fakeWriter{}, &fakePlanner{}, nil)
	ctx := context.Background()

	if _, err := h.publisher.Publish(ctx, TopicOpened, models.ContentRequest{ContentID: "BV1"}); err != nil {
		t.Fatalf("publish opened: %v", err)
	}
	if _, err := h.publisher.Publish(ctx, TopicDislike, models.ContentRequest{ContentID: "BV2"}); err != nil {
		t.Fatalf("publish dislike: %v", err)
	}
	progress := models.ProgressRequest{CreatorID: 42, CreatorName: "calm", ContentID: "BV3", PositionSec: 30}
	if _, err := h.publisher.Publish(ctx, TopicProgress, progress); err != nil {
		t.Fatalf("publish progress: %v", err)
	}

	waitFor(t, "plan actions", func() bool {
		s := h.planner.snapshot()
		return len(s.opened) == 1 && len(s.dislikes) == 1 && len(s.progress) == 1
	})

	s := h.planner.snapshot()
	if s.opened[0] != "BV1" || s.dislikes[0] != "BV2" {
		t.Errorf("opened = %v, dislikes = %v", s.opened, s.dislikes)
	}
	if diff := cmp.Diff(progress, s.progress[0]); diff != "" {
		t.Errorf("progress mismatch (-want +got):\n%s", diff)
	}
}

func TestRouter_SettlesPermanentPlannerErrors(t *testing.T) {
	plans := &fakePlanner{openErr: planner.ErrNotFound}
	h := newHarness(t, testRouterConfig(), &fakeWriter{}, plans, nil)

	if _, err := h.publisher.Publish(context.Background(), TopicOpened, models.ContentRequest{ContentID: "gone"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	waitFor(t, "opened", func() bool { return len(plans.snapshot().opened) >= 1 })

	// A retried handler would call MarkOpened again.
	time.Sleep(50 * time.Millisecond)
	if n := len(plans.snapshot().opened); n != 1 {
		t.Errorf("MarkOpened called %d times, want 1", n)
	}
}

func TestRouter_RetriesTransientFailures(t *testing.T) {
	writer := &fakeWriter{failFirst: 2}
	h := newHarness(t, testRouterConfig(), writer, &fakePlanner{}, nil)

	batch := &models.HistoryBatch{Items: []models.HistoryItem{{ContentID: "BV1", ViewAt: 1}}}
	if err := h.publisher.IngestHistory(context.Background(), batch); err != nil {
		t.Fatalf("IngestHistory: %v", err)
	}
	waitFor(t, "history write after retries", func() bool { return writer.historyLen() == 1 })
	if got := writer.callCount(); got != 3 {
		t.Errorf("write attempts = %d, want 3", got)
	}
}

func TestRouter_PoisonsExhaustedMessages(t *testing.T) {
	cfg := testRouterConfig()
	var poisoned <-chan *message.Message
	h := newHarness(t, cfg, &fakeWriter{}, &fakePlanner{}, func(bus *Bus) {
		ch, err := bus.Subscriber().Subscribe(context.Background(), cfg.PoisonQueueTopic)
		if err != nil {
			t.Fatalf("subscribe poison: %v", err)
		}
		poisoned = ch
	})

	// Fails validation: items are required.
	event, err := h.publisher.Publish(context.Background(), TopicHistory, models.HistoryBatch{})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case msg := <-poisoned:
		msg.Ack()
		if msg.UUID != event.ID {
			t.Errorf("poisoned UUID = %q, want %q", msg.UUID, event.ID)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("message was not routed to the poison queue")
	}
	if h.writer.callCount() != 0 {
		t.Error("invalid batch reached the writer")
	}
}

func TestRouter_DeduplicatesRedeliveredEvents(t *testing.T) {
	h := newHarness(t, testRouterConfig(), &fakeWriter{}, &fakePlanner{}, nil)

	event, err := NewEvent(TopicDislike, models.ContentRequest{ContentID: "BV5"})
	if err != nil {
		t.Fatalf("NewEvent: %v", err)
	}
	for i := 0; i < 2; i++ {
		msg, err := event.Message()
		if err != nil {
			t.Fatalf("Message: %v", err)
		}
		if err := h.bus.Publisher().Publish(TopicDislike, msg); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}

	waitFor(t, "dislike", func() bool { return len(h.planner.snapshot().dislikes) >= 1 })
	time.Sleep(50 * time.Millisecond)
	if n := len(h.planner.snapshot().dislikes); n != 1 {
		t.Errorf("dislikes = %d, want 1", n)
	}
	if h.router.DedupEntries() == 0 {
		t.Error("dedup repository is empty")
	}
}

func TestRouter_RedeliversFailedEventWithoutPoisonQueue(t *testing.T) {
	cfg := testRouterConfig()
	cfg.PoisonQueueTopic = ""
	cfg.RetryMaxRetries = 0
	writer := &fakeWriter{failFirst: 1}
	h := newHarness(t, cfg, writer, &fakePlanner{}, nil)

	batch := &models.HistoryBatch{Items: []models.HistoryItem{{ContentID: "BV1", ViewAt: 1}}}
	if err := h.publisher.IngestHistory(context.Background(), batch); err != nil {
		t.Fatalf("IngestHistory: %v", err)
	}

	// The nacked message comes back with the same ID and must not be
	// treated as a duplicate.
	waitFor(t, "history write after redelivery", func() bool { return writer.historyLen() == 1 })
	if got := writer.callCount(); got != 2 {
		t.Errorf("write attempts = %d, want 2", got)
	}
	if h.router.DedupEntries() != 1 {
		t.Errorf("dedup entries = %d, want 1", h.router.DedupEntries())
	}
}

func TestPublisher_Closed(t *testing.T) {
	busCfg := DefaultBusConfig()
	bus, err := NewBus(context.Background(), &busCfg, nil)
	if err != nil {
		t.Fatalf("NewBus: %v", err)
	}
	defer bus.Close()

	pub := NewPublisher(bus.Publisher())
	_ = pub.Close()
	if _, err := pub.Publish(context.Background(), TopicOpened, models.ContentRequest{ContentID: "x"}); !errors.Is(err, ErrPublisherClosed) {
		t.Errorf("err = %v, want ErrPublisherClosed", err)
	}
}

func TestNewBus_UnknownBackend(t *testing.T) {
	cfg := DefaultBusConfig()
	cfg.Backend = "kafka"
	if _, err := NewBus(context.Background(), &cfg, nil); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestListenAddress(t *testing.T) {
	tests := []struct {
		url     string
		host    string
		port    int
		wantErr bool
	}{
		{url: "nats://127.0.0.1:4222", host: "127.0.0.1", port: 4222},
		{url: "nats://localhost:14222", host: "localhost", port: 14222},
		{url: "nats://localhost", wantErr: true},
		{url: "nats://host:abc", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			host, port, err := listenAddress(tt.url)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if host != tt.host || port != tt.port {
				t.Errorf("got %s:%d, want %s:%d", host, port, tt.host, tt.port)
			}
		})
	}
}

func TestDurableName(t *testing.T) {
	if got := durableName("todaywatch", TopicHistory); got != "todaywatch_todaywatch_history" {
		t.Errorf("durableName = %q", got)
	}
	if got := durableName("", TopicOpened); got != "todaywatch_opened" {
		t.Errorf("durableName without prefix = %q", got)
	}
}

func TestBusConfigFrom(t *testing.T) {
	cfg := &config.Config{
		Events: config.EventsConfig{
			Backend:                    BackendNATS,
			RouterRetryCount:           4,
			RouterRetryInitialInterval: 250 * time.Millisecond,
			RouterDeduplicationEnabled: true,
			RouterDeduplicationTTL:     time.Minute,
			RouterPoisonQueueEnabled:   false,
			RouterPoisonQueueTopic:     "todaywatch.poison",
			RouterThrottlePerSecond:    20,
			RouterCloseTimeout:         5 * time.Second,
		},
		NATS: config.NATSConfig{
			URL:                 "nats://10.0.0.2:4222",
			StreamRetentionDays: 3,
			SubscribersCount:    4,
			DurableName:         "tw",
		},
	}

	bc := BusConfigFrom(cfg)
	if bc.Backend != BackendNATS {
		t.Errorf("Backend = %q", bc.Backend)
	}
	if bc.Router.PoisonQueueTopic != "" {
		t.Errorf("poison topic = %q, want disabled", bc.Router.PoisonQueueTopic)
	}
	if bc.Router.RetryMaxRetries != 4 || bc.Router.ThrottlePerSecond != 20 {
		t.Errorf("router config = %+v", bc.Router)
	}
	if bc.NATS.MaxAge != 72*time.Hour {
		t.Errorf("MaxAge = %v, want 72h", bc.NATS.MaxAge)
	}
	if bc.NATS.SubscribersCount != 4 || bc.NATS.DurableName != "tw" {
		t.Errorf("nats config = %+v", bc.NATS)
	}
}
