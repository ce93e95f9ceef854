// Today Watch - Local Video Recommendation and Queue Planning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/todaywatch

package planner

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tomtom215/todaywatch/internal/logging"
	"github.com/tomtom215/todaywatch/internal/metrics"
	"github.com/tomtom215/todaywatch/internal/models"
	"github.com/tomtom215/todaywatch/internal/todaywatch"
)

// MarkOpened records that the user opened contentID. The id joins the
// consumed set whether or not it is queued; a queued id is removed from the
// plan, and a queue that drops below the preview window is refilled when
// auto rebuilds are allowed.
func (s *Service) MarkOpened(ctx context.Context, contentID string) (*models.PlanView, error) {
	contentID = strings.TrimSpace(contentID)
	if contentID == "" {
		return nil, ErrNotFound
	}
	s.consumed.Add(contentID)

	settings, err := s.settings.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	s.mu.Lock()
	if s.plan == nil {
		s.mu.Unlock()
		metrics.RecordConsume(false, false)
		return nil, ErrNoPlan
	}
	updated, applied, refill := todaywatch.Consume(*s.plan, contentID, settings.QueuePreviewLimit)
	if applied {
		s.plan = &updated
	}
	note := s.note
	s.mu.Unlock()

	metrics.RecordConsume(applied, refill)
	view := newView(&updated, &settings, note)
	if !applied {
		return view, nil
	}

	logging.Ctx(ctx).Debug().
		Str("content_id", contentID).
		Int("remaining", len(updated.VideoQueue)).
		Bool("refill", refill).
		Msg("Queue item consumed")
	s.notify(EventPlanConsumed, ConsumedNotice{ContentID: contentID, Refill: refill, Plan: view})

	if refill && todaywatch.ShouldAutoRebuild(settings.Enabled, settings.Collapsed) {
		rebuilt, err := s.Rebuild(ctx, ReasonRefill)
		if err != nil {
			if errors.Is(err, ErrNoPlan) {
				return view, nil
			}
			return nil, err
		}
		return rebuilt, nil
	}
	return view, nil
}

// Refresh is the user's "show me something else": the videos currently in
// the preview window are marked consumed and the plan is rebuilt with fresh
// history. Calls faster than the configured interval get ErrRefreshThrottled.
func (s *Service) Refresh(ctx context.Context) (*models.PlanView, error) {
	if !s.limiter.Allow() {
		metrics.ManualRefreshes.WithLabelValues("throttled").Inc()
		return nil, ErrRefreshThrottled
	}
	metrics.ManualRefreshes.WithLabelValues("accepted").Inc()

	settings, err := s.settings.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	s.mu.RLock()
	ids := todaywatch.CollectConsumedForManualRefresh(s.plan, settings.QueuePreviewLimit)
	s.mu.RUnlock()

	added := s.consumed.Add(ids...)
	logging.Ctx(ctx).Debug().Int("consumed", added).Msg("Manual refresh")

	return s.Rebuild(ctx, ReasonManual)
}

// RecordDislike stores negative feedback for a pooled video: the id, its
// creator and keywords extracted from its title. The plan is rebuilt.
func (s *Service) RecordDislike(ctx context.Context, contentID string) (*models.PlanView, error) {
	item, err := s.findCandidate(ctx, strings.TrimSpace(contentID))
	if err != nil {
		return nil, err
	}

	keywords := todaywatch.ExtractFeedbackKeywords(item.Title)
	if err := s.feedback.RecordDislike(ctx, item.ContentID, item.CreatorID, keywords); err != nil {
		return nil, fmt.Errorf("record dislike: %w", err)
	}
	metrics.Dislikes.Inc()
	logging.Ctx(ctx).Info().
		Str("content_id", item.ContentID).
		Int64("creator_id", item.CreatorID).
		Strs("keywords", keywords).
		Msg("Dislike recorded")

	return s.Rebuild(ctx, ReasonDislike)
}

// findCandidate looks in the current queue first, then in the pool.
func (s *Service) findCandidate(ctx context.Context, contentID string) (todaywatch.CandidateItem, error) {
	if contentID == "" {
		return todaywatch.CandidateItem{}, ErrNotFound
	}

	s.mu.RLock()
	if s.plan != nil {
		for i := range s.plan.VideoQueue {
			if s.plan.VideoQueue[i].ContentID == contentID {
				item := s.plan.VideoQueue[i]
				s.mu.RUnlock()
				return item, nil
			}
		}
	}
	s.mu.RUnlock()

	pool, err := s.source.Candidates(ctx, s.cfg.CandidateLimit)
	if err != nil {
		return todaywatch.CandidateItem{}, fmt.Errorf("load candidates: %w", err)
	}
	for i := range pool {
		if pool[i].ContentID == contentID {
			return pool[i], nil
		}
	}
	return todaywatch.CandidateItem{}, ErrNotFound
}

// RecordWatchProgress turns a playback position report into creator
// affinity. Reports are keyed by contentID (or the creator when no id is
// given); each report credits the seconds since the previous one, capped at
// 45. Non-positive creators or positions are ignored.
func (s *Service) RecordWatchProgress(ctx context.Context, creatorID int64, name, contentID string, positionSec int64) error {
	if creatorID <= 0 || positionSec <= 0 {
		return nil
	}
	key := contentID
	if key == "" {
		key = "creator:" + strconv.FormatInt(creatorID, 10)
	}
	delta := s.positions.Delta(key, positionSec)
	if delta <= 0 {
		return nil
	}
	if err := s.profiles.RecordWatchProgress(ctx, creatorID, name, delta); err != nil {
		return fmt.Errorf("record watch progress: %w", err)
	}
	metrics.WatchProgressSeconds.Add(float64(delta))
	return nil
}

// ClearPersonalization forgets creator signals, negative feedback and the
// session state, bumps the settings refresh token and rebuilds.
func (s *Service) ClearPersonalization(ctx context.Context) (models.Settings, error) {
	if err := s.profiles.Clear(ctx); err != nil {
		return models.Settings{}, fmt.Errorf("clear creator signals: %w", err)
	}
	if err := s.feedback.Clear(ctx); err != nil {
		return models.Settings{}, fmt.Errorf("clear feedback: %w", err)
	}
	s.consumed.Reset()
	s.positions.Reset()
	s.history.Clear()

	settings, err := s.settings.Load(ctx)
	if err != nil {
		return models.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	settings.RefreshToken = s.now().UnixMilli()
	if err := s.settings.Save(ctx, settings); err != nil {
		return models.Settings{}, fmt.Errorf("save settings: %w", err)
	}
	s.notify(EventSettingsUpdated, settings)
	logging.Ctx(ctx).Info().Int64("refresh_token", settings.RefreshToken).Msg("Personalization cleared")

	if _, err := s.Rebuild(ctx, ReasonClear); err != nil && !errors.Is(err, ErrNoPlan) && !errors.Is(err, ErrDisabled) {
		return settings, err
	}
	return settings, nil
}

// Settings returns the stored settings.
func (s *Service) Settings(ctx context.Context) (models.Settings, error) {
	return s.settings.Load(ctx)
}

// UpdateSettings normalizes and saves next. The refresh token is owned by
// the service and cannot be changed here. Changes that affect the plan
// trigger a rebuild when auto rebuilds are allowed; disabling clears it.
func (s *Service) UpdateSettings(ctx context.Context, next models.Settings) (models.Settings, error) {
	current, err := s.settings.Load(ctx)
	if err != nil {
		return models.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	next = next.Normalize()
	next.RefreshToken = current.RefreshToken

	if err := s.settings.Save(ctx, next); err != nil {
		return models.Settings{}, fmt.Errorf("save settings: %w", err)
	}
	s.notify(EventSettingsUpdated, next)

	switch {
	case !next.Enabled:
		s.clearPlan()
	case affectsPlan(&current, &next) && todaywatch.ShouldAutoRebuild(next.Enabled, next.Collapsed):
		if _, err := s.Rebuild(ctx, ReasonSettings); err != nil && !errors.Is(err, ErrNoPlan) {
			return next, err
		}
	}
	return next, nil
}

func affectsPlan(before, after *models.Settings) bool {
	return before.Enabled != after.Enabled ||
		before.Collapsed != after.Collapsed ||
		before.Mode != after.Mode ||
		before.UpRankLimit != after.UpRankLimit ||
		before.QueueBuildLimit != after.QueueBuildLimit ||
		before.HistorySampleLimit != after.HistorySampleLimit ||
		before.LinkEyeCareSignal != after.LinkEyeCareSignal
}
