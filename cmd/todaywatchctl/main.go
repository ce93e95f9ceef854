// Today Watch - Local Video Recommendation and Queue Planning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/todaywatch

// Command todaywatchctl runs the planning core offline against JSON files.
//
//	todaywatchctl plan --snapshot snapshot.json --mode LEARN --night
//	todaywatchctl keywords "Lo-fi beats to study to"
//	todaywatchctl consume --plan plan.json --id BV1xx --preview 6
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
