// Today Watch - Local Video Recommendation and Queue Planning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/todaywatch

// Package models holds the persisted and wire-level types shared by the
// store, planner, event processor and API: settings, negative feedback,
// request bodies and the response envelope.
package models
