package highlights

import (
	"github.com/samber/lo"

	"github.com/forPelevin/reelcut/internal/types"
)

// Candidate is the unit both selection policies work on. Index points back
// into the list the candidate was built from.
type Candidate struct {
	Interval types.TimeInterval
	Score    float64
	Index    int
}

func (c Candidate) Duration() float64 { return c.Interval.Duration() }

// FromScored builds candidates from scored transcript segments.
func FromScored(segs []types.ScoredSegment) []Candidate {
	return lo.Map(segs, func(s types.ScoredSegment, i int) Candidate {
		return Candidate{Interval: s.Interval, Score: s.Score, Index: i}
	})
}

// FromMotion builds candidates from motion intervals. The score is the
// interval's motion score so callers can still rank by it.
func FromMotion(ivs []types.MotionInterval) []Candidate {
	return lo.Map(ivs, func(m types.MotionInterval, i int) Candidate {
		return Candidate{Interval: m.Interval, Score: m.FrameMotionScore, Index: i}
	})
}

// Intervals strips candidates down to their time spans.
func Intervals(cands []Candidate) []types.TimeInterval {
	return lo.Map(cands, func(c Candidate, _ int) types.TimeInterval { return c.Interval })
}

// TotalDuration sums candidate durations.
func TotalDuration(cands []Candidate) float64 {
	return lo.SumBy(cands, func(c Candidate) float64 { return c.Duration() })
}

// CapDuration shortens candidates longer than maxDur to their first maxDur
// seconds. A non-positive maxDur leaves the list unchanged.
func CapDuration(cands []Candidate, maxDur float64) []Candidate {
	return lo.Map(cands, func(c Candidate, _ int) Candidate {
		if maxDur > 0 && c.Duration() > maxDur {
			c.Interval.End = c.Interval.Start + maxDur
		}
		return c
	})
}
