// Today Watch - Local Video Recommendation and Queue Planning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/todaywatch

package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Closer is anything released on shutdown, such as the event bus.
type Closer interface {
	Close() error
}

// BusService owns the lifetime of the event bus. The bus is opened before
// the tree starts and closed when the service stops, which also stops an
// embedded NATS server.
type BusService struct {
	bus    Closer
	logger zerolog.Logger
}

// NewBusService wraps an opened bus.
//
//nolint:gocritic // zerolog.Logger is passed by value
func NewBusService(bus Closer, logger zerolog.Logger) *BusService {
	return &BusService{
		bus:    bus,
		logger: logger.With().Str("service", "event-bus").Logger(),
	}
}

// Serve blocks until ctx is canceled, then closes the bus.
func (s *BusService) Serve(ctx context.Context) error {
	s.logger.Info().Msg("event bus running")
	<-ctx.Done()

	if err := s.bus.Close(); err != nil {
		s.logger.Error().Err(err).Msg("event bus close failed")
		return fmt.Errorf("close event bus: %w", err)
	}
	s.logger.Info().Msg("event bus closed")
	return ctx.Err()
}

func (s *BusService) String() string {
	return "event-bus"
}
