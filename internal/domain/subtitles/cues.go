package subtitles

import (
	"math"
	"strings"

	"github.com/forPelevin/reelcut/internal/types"
)

const (
	lineCharBudget = 42
	lineWordBudget = 9
)

// ForInterval returns the cues for a clip cut from iv, timed relative to
// the clip start. Segments that overlap the clip are clamped to it. When
// the transcript carries word timings the words are regrouped into short
// lines; otherwise each segment becomes one cue.
func ForInterval(tr types.Transcript, iv types.TimeInterval) []types.Cue {
	if words := collectWords(tr, iv); len(words) > 0 {
		return packWords(words)
	}
	var out []types.Cue
	for _, s := range tr.Segments {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		c, ok := clip(s.Start, s.End, iv)
		if !ok {
			continue
		}
		c.Text = text
		out = append(out, c)
	}
	return out
}

// Active returns the cue shown at clip time t, if any.
func Active(cues []types.Cue, t float64) (types.Cue, bool) {
	for _, c := range cues {
		if c.Start <= t && t < c.End {
			return c, true
		}
	}
	return types.Cue{}, false
}

func clip(start, end float64, iv types.TimeInterval) (types.Cue, bool) {
	if end <= iv.Start || start >= iv.End {
		return types.Cue{}, false
	}
	start = math.Max(start, iv.Start)
	end = math.Min(end, iv.End)
	return types.Cue{Start: start - iv.Start, End: end - iv.Start}, true
}

func collectWords(tr types.Transcript, iv types.TimeInterval) []types.Cue {
	var out []types.Cue
	for _, s := range tr.Segments {
		for _, w := range s.Words {
			text := strings.TrimSpace(w.Word)
			if text == "" {
				continue
			}
			c, ok := clip(w.Start, w.End, iv)
			if !ok {
				continue
			}
			c.Text = text
			out = append(out, c)
		}
	}
	return out
}

func packWords(words []types.Cue) []types.Cue {
	var out []types.Cue
	var cur []string
	curStart, curEnd, curLen := words[0].Start, words[0].End, 0
	flush := func() {
		if len(cur) > 0 {
			out = append(out, types.Cue{Start: curStart, End: curEnd, Text: strings.Join(cur, " ")})
		}
	}
	for _, w := range words {
		wl := len([]rune(w.Text))
		next := curLen + wl
		if curLen > 0 {
			next++
		}
		if len(cur) >= lineWordBudget || (len(cur) > 0 && next > lineCharBudget) {
			flush()
			cur, curStart, curLen = nil, w.Start, 0
			next = wl
		}
		cur = append(cur, w.Text)
		curEnd = w.End
		curLen = next
	}
	flush()
	return out
}
