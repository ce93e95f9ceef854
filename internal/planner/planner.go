// Today Watch - Local Video Recommendation and Queue Planning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/todaywatch

// Package planner is the stateful side of Today Watch. It owns the current
// plan and the session's consumed set, pulls history and candidates from a
// Source, merges the persisted signals and feedback from the stores, and
// runs todaywatch.BuildPlan whenever something relevant changes.
//
// All exported methods are safe for concurrent use. Rebuilds are
// serialized; reads of the current plan never block on a rebuild.
package planner

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/todaywatch/internal/cache"
	"github.com/tomtom215/todaywatch/internal/config"
	"github.com/tomtom215/todaywatch/internal/eyecare"
	"github.com/tomtom215/todaywatch/internal/logging"
	"github.com/tomtom215/todaywatch/internal/metrics"
	"github.com/tomtom215/todaywatch/internal/models"
	"github.com/tomtom215/todaywatch/internal/store"
	"github.com/tomtom215/todaywatch/internal/todaywatch"
)

var (
	// ErrDisabled is returned when Today Watch is switched off in settings.
	ErrDisabled = errors.New("today watch is disabled")

	// ErrNoPlan is returned when there is no candidate pool to plan from.
	ErrNoPlan = errors.New("no plan available")

	// ErrRefreshThrottled is returned when manual refreshes come too fast.
	ErrRefreshThrottled = errors.New("manual refresh throttled")

	// ErrNotFound is returned when a content id is not in the pool.
	ErrNotFound = errors.New("content not found")
)

// Reason labels why a plan was rebuilt.
type Reason string

const (
	ReasonLazy      Reason = "lazy"
	ReasonForced    Reason = "forced"
	ReasonRefill    Reason = "refill"
	ReasonManual    Reason = "manual"
	ReasonDislike   Reason = "dislike"
	ReasonSettings  Reason = "settings"
	ReasonClear     Reason = "clear"
	ReasonScheduled Reason = "scheduled"
	ReasonIngest    Reason = "ingest"
)

// reloadsHistory reports whether the reason bypasses the history cache.
func (r Reason) reloadsHistory() bool {
	return r == ReasonForced || r == ReasonManual || r == ReasonClear
}

// Notification types sent through the Notifier.
const (
	EventPlanUpdated     = "plan_updated"
	EventPlanConsumed    = "plan_consumed"
	EventSettingsUpdated = "settings_updated"
)

// NoteHistoryUnavailable is attached to plans built without history.
const NoteHistoryUnavailable = "history unavailable"

// Source provides the watch history and the candidate pool.
type Source interface {
	RecentHistory(ctx context.Context, limit int) ([]todaywatch.WatchedItem, error)
	Candidates(ctx context.Context, limit int) ([]todaywatch.CandidateItem, error)
}

// Notifier pushes plan and settings changes to connected clients.
type Notifier interface {
	Broadcast(messageType string, data interface{})
}

// ConsumedNotice is the payload of EventPlanConsumed.
type ConsumedNotice struct {
	ContentID string           `json:"content_id"`
	Refill    bool             `json:"refill"`
	Plan      *models.PlanView `json:"plan"`
}

// Config tunes the service. Zero values fall back to the defaults of
// DefaultConfig where a zero would be meaningless.
type Config struct {
	HistoryCacheTTL time.Duration
	RefreshInterval time.Duration
	RefreshBurst    int
	CandidateLimit  int

	BreakerMaxRequests      uint32
	BreakerInterval         time.Duration
	BreakerTimeout          time.Duration
	BreakerFailureThreshold uint32

	EyeCare eyecare.Window
}

// DefaultConfig mirrors the configuration defaults.
func DefaultConfig() Config {
	return Config{
		HistoryCacheTTL:         2 * time.Minute,
		RefreshInterval:         3 * time.Second,
		RefreshBurst:            1,
		CandidateLimit:          500,
		BreakerMaxRequests:      1,
		BreakerInterval:         time.Minute,
		BreakerTimeout:          30 * time.Second,
		BreakerFailureThreshold: 3,
		EyeCare:                 eyecare.DefaultWindow(),
	}
}

// ConfigFrom builds a Config from the loaded application configuration.
func ConfigFrom(cfg *config.Config) Config {
	tw := cfg.TodayWatch
	return Config{
		HistoryCacheTTL:         tw.HistoryCacheTTL,
		RefreshInterval:         tw.RefreshInterval,
		RefreshBurst:            tw.RefreshBurst,
		CandidateLimit:          tw.CandidateLimit,
		BreakerMaxRequests:      tw.BreakerMaxRequests,
		BreakerInterval:         tw.BreakerInterval,
		BreakerTimeout:          tw.BreakerTimeout,
		BreakerFailureThreshold: tw.BreakerFailureThreshold,
		EyeCare:                 cfg.EyeCare,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = d.RefreshInterval
	}
	if c.RefreshBurst <= 0 {
		c.RefreshBurst = d.RefreshBurst
	}
	if c.CandidateLimit <= 0 {
		c.CandidateLimit = d.CandidateLimit
	}
	if c.BreakerMaxRequests == 0 {
		c.BreakerMaxRequests = d.BreakerMaxRequests
	}
	if c.BreakerTimeout <= 0 {
		c.BreakerTimeout = d.BreakerTimeout
	}
	if c.BreakerFailureThreshold == 0 {
		c.BreakerFailureThreshold = d.BreakerFailureThreshold
	}
	return c
}

// historyBreakerName labels the breaker in metrics and logs.
const historyBreakerName = "history-source"

// Service is the Today Watch planner.
type Service struct {
	cfg      Config
	source   Source
	profiles store.ProfileStore
	feedback store.FeedbackStore
	settings store.SettingsStore
	notifier Notifier
	logger   zerolog.Logger
	now      func() time.Time

	history *cache.Cache[[]todaywatch.WatchedItem]
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[[]todaywatch.WatchedItem]

	// buildMu serializes rebuilds.
	buildMu sync.Mutex

	// mu guards the fields below.
	mu        sync.RWMutex
	plan      *todaywatch.Plan
	note      string
	consumed  *consumedSet
	positions *positionTracker
}

// New creates a planner. notifier may be nil.
func New(cfg Config, source Source, st store.Store, notifier Notifier) *Service {
	cfg = cfg.withDefaults()
	s := &Service{
		cfg:       cfg,
		source:    source,
		profiles:  st.Profiles(),
		feedback:  st.Feedback(),
		settings:  st.Settings(),
		notifier:  notifier,
		logger:    logging.WithComponent("planner"),
		now:       time.Now,
		history:   cache.New[[]todaywatch.WatchedItem](cfg.HistoryCacheTTL),
		limiter:   rate.NewLimiter(rate.Every(cfg.RefreshInterval), cfg.RefreshBurst),
		consumed:  newConsumedSet(maxConsumedIDs),
		positions: newPositionTracker(maxTrackedSessions),
	}
	s.breaker = gobreaker.NewCircuitBreaker[[]todaywatch.WatchedItem](gobreaker.Settings{
		Name:        historyBreakerName,
		MaxRequests: cfg.BreakerMaxRequests,
		Interval:    cfg.BreakerInterval,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
			metrics.RecordBreakerTransition(name, from.String(), to.String())
		},
	})
	return s
}

// Plan returns the current plan, building one if none exists yet.
func (s *Service) Plan(ctx context.Context) (*models.PlanView, error) {
	settings, err := s.settings.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if !settings.Enabled {
		return nil, ErrDisabled
	}

	s.mu.RLock()
	plan, note := s.plan, s.note
	s.mu.RUnlock()

	if plan == nil {
		return s.Rebuild(ctx, ReasonLazy)
	}
	return newView(plan, &settings, note), nil
}

// Rebuild builds a fresh plan and replaces the current one.
//
// A failing history source does not fail the rebuild: the plan is built
// without history and carries NoteHistoryUnavailable. Candidate errors are
// returned. An empty pool clears the plan and yields ErrNoPlan.
func (s *Service) Rebuild(ctx context.Context, reason Reason) (*models.PlanView, error) {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	log := logging.CtxWith(ctx).Str("component", "planner").Str("reason", string(reason)).Logger()

	settings, err := s.settings.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if !settings.Enabled {
		s.clearPlan()
		return nil, ErrDisabled
	}
	consumed := s.consumed.IDs()

	candidates, err := s.source.Candidates(ctx, s.cfg.CandidateLimit)
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}
	if len(candidates) == 0 {
		s.clearPlan()
		log.Debug().Msg("No candidates, plan cleared")
		return nil, ErrNoPlan
	}

	history, note := s.loadHistory(ctx, &log, settings.HistorySampleLimit, reason.reloadsHistory())

	signals, err := s.profiles.CreatorSignals(ctx, settings.CreatorSignalLimit())
	if err != nil {
		log.Warn().Err(err).Msg("Creator signals unavailable")
		signals = nil
	}

	snapshot, err := s.feedback.Snapshot(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Feedback unavailable")
		snapshot = models.FeedbackSnapshot{}
	}

	now := s.now()
	in := todaywatch.BuildInput{
		History:        history,
		Candidates:     candidates,
		Mode:           settings.Mode,
		NightActive:    settings.LinkEyeCareSignal && s.cfg.EyeCare.Active(now),
		Now:            now,
		UpRankLimit:    settings.UpRankLimit,
		QueueLimit:     settings.QueueBuildLimit,
		CreatorSignals: signals,
		Feedback:       snapshot.NegativeFeedback(consumed),
	}

	start := time.Now()
	plan := todaywatch.BuildPlan(in)
	elapsed := time.Since(start)

	s.mu.Lock()
	// Ids opened while the plan was being built are dropped here.
	s.dropConsumedLocked(&plan)
	s.plan = &plan
	s.note = note
	s.mu.Unlock()

	metrics.RecordPlanBuild(string(reason), elapsed, len(plan.VideoQueue), len(plan.UpRanks), plan.NightSignalUsed)
	log.Info().
		Str("mode", plan.Mode.String()).
		Int("candidates", len(candidates)).
		Int("history", plan.HistorySampleCount).
		Int("queue", len(plan.VideoQueue)).
		Bool("night", plan.NightSignalUsed).
		Dur("took", elapsed).
		Msg("Plan rebuilt")

	view := newView(&plan, &settings, note)
	s.notify(EventPlanUpdated, view)
	return view, nil
}

// dropConsumedLocked removes queued ids that are in the consumed set.
// MarkOpened adds to the set before it takes mu, so checking under mu
// catches every open that raced with a rebuild.
func (s *Service) dropConsumedLocked(plan *todaywatch.Plan) {
	kept := plan.VideoQueue[:0]
	for i := range plan.VideoQueue {
		id := plan.VideoQueue[i].ContentID
		if s.consumed.Contains(id) {
			delete(plan.ExplanationByID, id)
			continue
		}
		kept = append(kept, plan.VideoQueue[i])
	}
	plan.VideoQueue = kept
}

// RebuildIfActive rebuilds unless the card is disabled or collapsed. It is
// used by the scheduler and after ingestion; a missing pool is not an error.
func (s *Service) RebuildIfActive(ctx context.Context, reason Reason) error {
	settings, err := s.settings.Load(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if !todaywatch.ShouldAutoRebuild(settings.Enabled, settings.Collapsed) {
		return nil
	}
	if _, err := s.Rebuild(ctx, reason); err != nil && !errors.Is(err, ErrNoPlan) && !errors.Is(err, ErrDisabled) {
		return err
	}
	return nil
}

// InvalidateHistory drops the cached history sample so the next rebuild
// reads fresh history.
func (s *Service) InvalidateHistory() {
	s.history.Clear()
}

// loadHistory returns the history sample, from cache unless reload is set.
func (s *Service) loadHistory(ctx context.Context, log *zerolog.Logger, limit int, reload bool) ([]todaywatch.WatchedItem, string) {
	key := "history:" + strconv.Itoa(limit)
	if !reload {
		if items, ok := s.history.Get(key); ok {
			metrics.HistorySampleCache.WithLabelValues("hit").Inc()
			return items, ""
		}
	}
	metrics.HistorySampleCache.WithLabelValues("miss").Inc()

	items, err := s.breaker.Execute(func() ([]todaywatch.WatchedItem, error) {
		return s.source.RecentHistory(ctx, limit)
	})
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(historyBreakerName, "rejected").Inc()
		log.Warn().Err(err).Msg("History source breaker open, planning without history")
		return nil, NoteHistoryUnavailable
	case err != nil:
		metrics.CircuitBreakerRequests.WithLabelValues(historyBreakerName, "failure").Inc()
		log.Warn().Err(err).Msg("History unavailable, planning without history")
		return nil, NoteHistoryUnavailable
	}
	metrics.CircuitBreakerRequests.WithLabelValues(historyBreakerName, "success").Inc()

	s.history.Set(key, items)
	return items, ""
}

func (s *Service) clearPlan() {
	s.mu.Lock()
	s.plan = nil
	s.note = ""
	s.mu.Unlock()
	metrics.RecordPlanCleared()
}

func (s *Service) notify(messageType string, data interface{}) {
	if s.notifier != nil {
		s.notifier.Broadcast(messageType, data)
	}
}

// newView shapes a plan for clients according to the display settings.
func newView(plan *todaywatch.Plan, settings *models.Settings, note string) *models.PlanView {
	p := plan.Clone()
	if !settings.ShowUpRank {
		p.UpRanks = []todaywatch.CreatorRank{}
	}
	if !settings.ShowReasonHint {
		p.ExplanationByID = map[string]string{}
	}
	return &models.PlanView{
		Plan:         p,
		PreviewLimit: settings.QueuePreviewLimit,
		RefreshToken: settings.RefreshToken,
		Note:         note,
	}
}
