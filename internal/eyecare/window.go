// Today Watch - Local Video Recommendation and Queue Planning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/todaywatch

// Package eyecare decides whether the night eye-care signal is active.
package eyecare

import (
	"fmt"
	"time"
)

// Default night window, 22:00 to 07:00 local time.
const (
	DefaultStartHour = 22
	DefaultEndHour   = 7
)

// Window describes the configured eye-care night period.
type Window struct {
	// Enabled turns on time-based activation.
	Enabled bool `koanf:"enabled" json:"enabled"`

	// ForceEnabled keeps night mode on regardless of the clock.
	ForceEnabled bool `koanf:"force_enabled" json:"force_enabled"`

	// StartHour and EndHour are hours of day in [0, 23]. A start after the
	// end means the window wraps past midnight.
	StartHour int `koanf:"start_hour" json:"start_hour" validate:"min=0,max=23"`
	EndHour   int `koanf:"end_hour" json:"end_hour" validate:"min=0,max=23"`

	// Location is the IANA zone used to read the hour. Empty means time.Local.
	Location string `koanf:"location" json:"location,omitempty"`
}

// DefaultWindow returns the default enabled 22:00-07:00 window.
func DefaultWindow() Window {
	return Window{
		Enabled:   true,
		StartHour: DefaultStartHour,
		EndHour:   DefaultEndHour,
	}
}

// Validate checks hour ranges and the location name.
func (w Window) Validate() error {
	if w.StartHour < 0 || w.StartHour > 23 {
		return fmt.Errorf("eyecare start_hour %d out of range [0,23]", w.StartHour)
	}
	if w.EndHour < 0 || w.EndHour > 23 {
		return fmt.Errorf("eyecare end_hour %d out of range [0,23]", w.EndHour)
	}
	if w.Location != "" {
		if _, err := time.LoadLocation(w.Location); err != nil {
			return fmt.Errorf("eyecare location: %w", err)
		}
	}
	return nil
}

// Active reports whether night mode applies at now.
func (w Window) Active(now time.Time) bool {
	if w.ForceEnabled {
		return true
	}
	if !w.Enabled {
		return false
	}

	if w.Location != "" {
		if loc, err := time.LoadLocation(w.Location); err == nil {
			now = now.In(loc)
		}
	}
	hour := now.Hour()

	if w.StartHour > w.EndHour {
		return hour >= w.StartHour || hour < w.EndHour
	}
	return hour >= w.StartHour && hour < w.EndHour
}
