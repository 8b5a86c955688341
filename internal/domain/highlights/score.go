package highlights

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/samber/lo"

	"github.com/forPelevin/reelcut/internal/types"
)

// Scoring weights. Changing any of them changes which highlights existing
// jobs would pick, so they are fixed.
const (
	peakWeight      = 1.0
	peakSlack       = 0.5
	keywordWeight   = 2.0
	sceneWeight     = 1.5
	sceneProximity  = 1.0
	durationBonus   = 0.5
	durationPenalty = -0.5
	punctBonus      = 0.5
)

// DefaultKeywords is the built-in keyword list used when the config has none.
var DefaultKeywords = []string{
	"главное", "вопрос", "важно", "итог", "ответ",
	"ключевое", "education", "students", "learning", "school",
	"ai", "developers", "artificial", "intelligence", "coding",
}

// Score returns the relevance of a transcript segment given the extracted signals.
func Score(seg types.Segment, peaks []float64, keywords []string, scenes []types.TimeInterval) float64 {
	score := 0.0

	if lo.ContainsBy(peaks, func(p float64) bool {
		return seg.Start-peakSlack <= p && p <= seg.End+peakSlack
	}) {
		score += peakWeight
	}

	lower := strings.ToLower(seg.Text)
	for _, k := range keywords {
		k = strings.ToLower(k)
		if k == "" {
			continue
		}
		score += keywordWeight * float64(strings.Count(lower, k))
	}

	if lo.ContainsBy(scenes, func(s types.TimeInterval) bool {
		return math.Abs(seg.Start-s.Start) < sceneProximity
	}) {
		score += sceneWeight
	}

	// 20 < d <= 30 is neutral.
	switch d := seg.End - seg.Start; {
	case d >= 3 && d <= 20:
		score += durationBonus
	case d < 3 || d > 30:
		score += durationPenalty
	}

	if strings.ContainsAny(seg.Text, "?!") {
		score += punctBonus
	}
	return score
}

// FoundKeywords returns the keywords that occur anywhere in text, in keyword order.
func FoundKeywords(text string, keywords []string) []string {
	lower := strings.ToLower(text)
	return lo.Filter(keywords, func(k string, _ int) bool {
		return k != "" && strings.Contains(lower, strings.ToLower(k))
	})
}

// Hashtags builds the sorted hashtag set for a segment: alphabetic words longer
// than three letters plus every found keyword.
func Hashtags(text string, found []string) []string {
	set := map[string]struct{}{}
	for _, w := range strings.Fields(text) {
		if len([]rune(w)) <= 3 || !isAlpha(w) {
			continue
		}
		set["#"+strings.ToLower(w)] = struct{}{}
	}
	for _, k := range found {
		set["#"+strings.ToLower(k)] = struct{}{}
	}
	out := lo.Keys(set)
	sort.Strings(out)
	return out
}

// ScoreTranscript scores every transcript segment and drops the ones with a
// non-positive score. Output keeps transcript order.
func ScoreTranscript(tr types.Transcript, peaks []float64, scenes []types.TimeInterval, keywords []string) []types.ScoredSegment {
	found := FoundKeywords(tr.Text(), keywords)
	var out []types.ScoredSegment
	for _, seg := range tr.Segments {
		s := Score(seg, peaks, keywords, scenes)
		if s <= 0 {
			continue
		}
		out = append(out, types.ScoredSegment{
			Interval: seg.Interval(),
			Text:     strings.TrimSpace(seg.Text),
			Score:    s,
			Hashtags: Hashtags(seg.Text, found),
		})
	}
	return out
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return s != ""
}
