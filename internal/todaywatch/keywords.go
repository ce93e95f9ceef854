// Today Watch - Local Video Recommendation and Queue Planning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/todaywatch

package todaywatch

import (
	"regexp"
	"strings"
)

// relaxKeywords lean a title toward leisure viewing: music, vlog, daily
// life, comedy, relaxing, healing, ASMR, travel, food and games.
var relaxKeywords = []string{
	"音乐", "vlog", "日常", "搞笑", "轻松", "治愈", "asmr", "旅行", "美食", "游戏",
}

// learnKeywords lean a title toward study: tutorial, science, knowledge,
// study, principles, practice, review, programming, math, English, course,
// technology, analysis, beginner and advanced.
var learnKeywords = []string{
	"教程", "科普", "知识", "学习", "原理", "实战", "复盘", "编程", "数学", "英语",
	"课程", "技术", "分析", "入门", "进阶",
}

// RelaxKeywords returns a copy of the leisure vocabulary.
func RelaxKeywords() []string {
	return append([]string(nil), relaxKeywords...)
}

// LearnKeywords returns a copy of the study vocabulary.
func LearnKeywords() []string {
	return append([]string(nil), learnKeywords...)
}

const (
	maxHanFeedbackTokens   = 6
	maxLatinFeedbackTokens = 4
)

var (
	hanTokenPattern   = regexp.MustCompile(`[\x{4e00}-\x{9fa5}]{2,6}`)
	latinTokenPattern = regexp.MustCompile(`[a-z0-9]{3,}`)
)

// feedbackStopwords are frequent title fillers that carry no preference:
// video, compilation, latest, one, we, you, today, really, this.
var feedbackStopwords = map[string]struct{}{
	"视频": {}, "合集": {}, "最新": {}, "一个": {}, "我们": {},
	"你们": {}, "今天": {}, "真的": {}, "这个": {},
}

// ExtractFeedbackKeywords derives dislike keywords from a video title.
// It takes the first six Han tokens of 2-6 characters that are not
// stopwords, then the first four latin/digit tokens of at least three
// characters. The result is lower-cased and distinct, in title order.
func ExtractFeedbackKeywords(title string) []string {
	if strings.TrimSpace(title) == "" {
		return nil
	}
	normalized := strings.ToLower(title)

	tokens := make([]string, 0, maxHanFeedbackTokens+maxLatinFeedbackTokens)
	for _, tok := range hanTokenPattern.FindAllString(normalized, -1) {
		if len(tokens) == maxHanFeedbackTokens {
			break
		}
		if _, stop := feedbackStopwords[tok]; stop {
			continue
		}
		tokens = append(tokens, tok)
	}
	tokens = append(tokens, latinTokenPattern.FindAllString(normalized, maxLatinFeedbackTokens)...)

	seen := make(map[string]struct{}, len(tokens))
	out := tokens[:0]
	for _, tok := range tokens {
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}

// countHits counts keywords contained in the lower-cased title.
func countHits(title string, keywords []string) int {
	hits := 0
	for _, kw := range keywords {
		if strings.Contains(title, kw) {
			hits++
		}
	}
	return hits
}
