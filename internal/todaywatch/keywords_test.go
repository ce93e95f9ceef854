// Today Watch - Local Video Recommendation and Queue Planning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/todaywatch

package todaywatch

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExtractFeedbackKeywords(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  []string
	}{
		{"blank", "   ", nil},
		{"han tokens without stopwords", "剧透 游戏 视频 原神", []string{"剧透", "游戏", "原神"}},
		{"han then latin", "剧透 视频 Minecraft 游戏 RTX4090 ab", []string{"剧透", "游戏", "minecraft", "rtx4090"}},
		{"han limit", "一一 二二 三三 四四 五五 六六 七七 八八", []string{"一一", "二二", "三三", "四四", "五五", "六六"}},
		{"latin limit", "aaa bbb ccc ddd eee", []string{"aaa", "bbb", "ccc", "ddd"}},
		{"duplicates collapse", "剧透 剧透 abc ABC", []string{"剧透", "abc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractFeedbackKeywords(tt.title)
			if len(tt.want) == 0 && len(got) == 0 {
				return
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ExtractFeedbackKeywords(%q) mismatch (-want +got):\n%s", tt.title, diff)
			}
		})
	}
}

func TestKeywordVocabulariesAreCopies(t *testing.T) {
	relax := RelaxKeywords()
	relax[0] = "mutated"
	if RelaxKeywords()[0] == "mutated" {
		t.Error("RelaxKeywords exposes internal slice")
	}
	if len(LearnKeywords()) != 15 {
		t.Errorf("len(LearnKeywords()) = %d, want 15", len(LearnKeywords()))
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"RELAX", ModeRelax, false},
		{"learn", ModeLearn, false},
		{" Relax ", ModeRelax, false},
		{"sleep", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err != nil && !errors.Is(err, ErrUnknownMode) {
			t.Errorf("ParseMode(%q) error = %v, want ErrUnknownMode", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseMode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
