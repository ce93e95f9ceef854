// Today Watch - Local Video Recommendation and Queue Planning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/todaywatch

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/todaywatch/internal/metrics"
	"github.com/tomtom215/todaywatch/internal/planner"
)

// Rebuilder rebuilds the plan when the feature is active.
type Rebuilder interface {
	RebuildIfActive(ctx context.Context, reason planner.Reason) error
}

// Pruner removes candidates older than a cutoff.
type Pruner interface {
	PruneCandidates(ctx context.Context, olderThan time.Duration) (int64, error)
}

// taskTimeout bounds a single tick of a periodic service.
const taskTimeout = 2 * time.Minute

// periodic runs task on every tick until ctx is canceled. Task errors are
// logged and never stop the loop.
type periodic struct {
	name     string
	interval time.Duration
	runFirst bool
	task     func(ctx context.Context) error
	logger   zerolog.Logger
}

func (p *periodic) Serve(ctx context.Context) error {
	if p.interval <= 0 {
		p.logger.Info().Msg("periodic service disabled")
		<-ctx.Done()
		return ctx.Err()
	}

	p.logger.Info().Dur("interval", p.interval).Msg("periodic service starting")

	if p.runFirst {
		p.run(ctx)
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("periodic service shutting down")
			return ctx.Err()
		case <-ticker.C:
			p.run(ctx)
		}
	}
}

func (p *periodic) run(ctx context.Context) {
	taskCtx, cancel := context.WithTimeout(ctx, taskTimeout)
	defer cancel()

	start := time.Now()
	if err := p.task(taskCtx); err != nil {
		p.logger.Warn().Err(err).Dur("duration", time.Since(start)).Msg("periodic task failed")
		return
	}
	p.logger.Debug().Dur("duration", time.Since(start)).Msg("periodic task complete")
}

func (p *periodic) String() string {
	return p.name
}

// RebuildService rebuilds the plan on a fixed interval so time-of-day
// effects stay current. A zero interval leaves it idle.
type RebuildService struct {
	periodic
}

// NewRebuildService creates a scheduled rebuild service.
//
//nolint:gocritic // zerolog.Logger is passed by value
func NewRebuildService(rebuilder Rebuilder, interval time.Duration, logger zerolog.Logger) *RebuildService {
	return &RebuildService{periodic{
		name:     "plan-rebuild",
		interval: interval,
		logger:   logger.With().Str("service", "plan-rebuild").Logger(),
		task: func(ctx context.Context) error {
			return rebuilder.RebuildIfActive(ctx, planner.ReasonScheduled)
		},
	}}
}

// PruneService removes stale candidates. It prunes once on start.
type PruneService struct {
	periodic
}

// NewPruneService creates a candidate pruning service.
//
//nolint:gocritic // zerolog.Logger is passed by value
func NewPruneService(pruner Pruner, maxAge, interval time.Duration, logger zerolog.Logger) *PruneService {
	log := logger.With().Str("service", "candidate-prune").Logger()
	return &PruneService{periodic{
		name:     "candidate-prune",
		interval: interval,
		runFirst: true,
		logger:   log,
		task: func(ctx context.Context) error {
			removed, err := pruner.PruneCandidates(ctx, maxAge)
			if err != nil {
				return err
			}
			if removed > 0 {
				metrics.CandidatesPruned.Add(float64(removed))
				log.Info().Int64("removed", removed).Dur("max_age", maxAge).Msg("pruned stale candidates")
			}
			return nil
		},
	}}
}
