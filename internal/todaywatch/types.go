// Today Watch - Local Video Recommendation and Queue Planning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/todaywatch

package todaywatch

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnknownMode is returned by ParseMode for unrecognized mode names.
var ErrUnknownMode = errors.New("unknown today watch mode")

// Mode selects how duration fit and keyword fit are weighted.
type Mode string

const (
	// ModeRelax favors short, calm, leisure content.
	ModeRelax Mode = "RELAX"
	// ModeLearn favors longer tutorial and knowledge content.
	ModeLearn Mode = "LEARN"
)

// String returns the canonical mode name.
func (m Mode) String() string {
	return string(m)
}

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	return m == ModeRelax || m == ModeLearn
}

// ParseMode parses a mode name case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(ModeRelax):
		return ModeRelax, nil
	case string(ModeLearn):
		return ModeLearn, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// WatchedItem is a single watch-history entry.
type WatchedItem struct {
	// ContentID is the video identifier (bvid).
	ContentID string `json:"content_id"`

	// CreatorID is the uploader identifier; only positive ids participate in aggregation.
	CreatorID int64 `json:"creator_id"`

	// CreatorName is the uploader display name.
	CreatorName string `json:"creator_name"`

	// ViewAt is the watch timestamp in epoch seconds (<= 0 means unknown).
	ViewAt int64 `json:"view_at"`

	// Progress is elapsed playback in seconds; negative means unknown.
	Progress int64 `json:"progress"`

	// Duration is the nominal video length in seconds.
	Duration int64 `json:"duration"`
}

// CandidateItem is an entry of the recommendation pool.
type CandidateItem struct {
	ContentID    string `json:"content_id"`
	Title        string `json:"title"`
	CreatorID    int64  `json:"creator_id"`
	CreatorName  string `json:"creator_name"`
	Duration     int64  `json:"duration"`
	PubDate      int64  `json:"pubdate"`
	ViewCount    int64  `json:"view_count"`
	DanmakuCount int64  `json:"danmaku_count"`
}

// CreatorSignal is a persisted, cross-session creator affinity record.
type CreatorSignal struct {
	CreatorID  int64   `json:"creator_id"`
	Name       string  `json:"name"`
	Score      float64 `json:"score"`
	WatchCount int     `json:"watch_count"`
}

// CreatorAffinity is the accumulated engagement with one creator.
// It is rebuilt on every BuildPlan call and never persisted here.
type CreatorAffinity struct {
	CreatorID  int64
	Name       string
	Score      float64
	WatchCount int
}

// NegativeFeedback bundles every signal that can only lower a candidate's score.
type NegativeFeedback struct {
	// ConsumedIDs are excluded from the candidate pool entirely.
	ConsumedIDs map[string]struct{}

	DislikedIDs      map[string]struct{}
	DislikedCreators map[int64]struct{}

	// DislikedKeywords are matched case-insensitively against titles.
	// Each distinct keyword counts once.
	DislikedKeywords []string
}

// NewNegativeFeedback builds a NegativeFeedback from plain slices.
func NewNegativeFeedback(consumed, dislikedIDs []string, dislikedCreators []int64, keywords []string) NegativeFeedback {
	fb := NegativeFeedback{
		ConsumedIDs:      make(map[string]struct{}, len(consumed)),
		DislikedIDs:      make(map[string]struct{}, len(dislikedIDs)),
		DislikedCreators: make(map[int64]struct{}, len(dislikedCreators)),
		DislikedKeywords: normalizeKeywords(keywords),
	}
	for _, id := range consumed {
		fb.ConsumedIDs[id] = struct{}{}
	}
	for _, id := range dislikedIDs {
		fb.DislikedIDs[id] = struct{}{}
	}
	for _, mid := range dislikedCreators {
		fb.DislikedCreators[mid] = struct{}{}
	}
	return fb
}

// normalizeKeywords trims and lower-cases keywords, dropping blanks and
// duplicates while keeping first-seen order.
func normalizeKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	seen := make(map[string]struct{}, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if _, dup := seen[kw]; dup {
			continue
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
	}
	return out
}

// IsConsumed reports whether the content id was already consumed.
func (f NegativeFeedback) IsConsumed(id string) bool {
	_, ok := f.ConsumedIDs[id]
	return ok
}

// ScoredCandidate is a candidate with its computed score and explanation.
type ScoredCandidate struct {
	Item        CandidateItem
	Score       float64
	Explanation string
}

// CreatorRank is one entry of the plan's top-creator list.
type CreatorRank struct {
	CreatorID  int64   `json:"creator_id"`
	Name       string  `json:"name"`
	Score      float64 `json:"score"`
	WatchCount int     `json:"watch_count"`
}

// Plan is the result of one BuildPlan call.
type Plan struct {
	Mode               Mode              `json:"mode"`
	UpRanks            []CreatorRank     `json:"up_ranks"`
	VideoQueue         []CandidateItem   `json:"video_queue"`
	ExplanationByID    map[string]string `json:"explanation_by_id"`
	HistorySampleCount int               `json:"history_sample_count"`
	NightSignalUsed    bool              `json:"night_signal_used"`
	GeneratedAt        time.Time         `json:"generated_at"`
}

// Clone returns a deep copy of the plan.
func (p Plan) Clone() Plan {
	out := p
	out.UpRanks = append([]CreatorRank(nil), p.UpRanks...)
	out.VideoQueue = append([]CandidateItem(nil), p.VideoQueue...)
	out.ExplanationByID = make(map[string]string, len(p.ExplanationByID))
	for k, v := range p.ExplanationByID {
		out.ExplanationByID[k] = v
	}
	return out
}

// QueueIDs returns the content ids of the queue in order.
func (p Plan) QueueIDs() []string {
	ids := make([]string, len(p.VideoQueue))
	for i := range p.VideoQueue {
		ids[i] = p.VideoQueue[i].ContentID
	}
	return ids
}

// BuildInput carries every argument of BuildPlan.
type BuildInput struct {
	History        []WatchedItem
	Candidates     []CandidateItem
	Mode           Mode
	NightActive    bool
	Now            time.Time
	UpRankLimit    int
	QueueLimit     int
	CreatorSignals []CreatorSignal
	Feedback       NegativeFeedback
}
