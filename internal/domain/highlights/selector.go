package highlights

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/forPelevin/reelcut/internal/types"
)

// ErrInsufficientMaterial is returned when no candidate survives filtering.
var ErrInsufficientMaterial = errors.New("insufficient material")

type Policy string

const (
	PolicyTopK       Policy = "top-k"
	PolicyMotionPack Policy = "motion-pack"
)

// Selector picks the candidates that become rendered highlights. The
// returned slice is in render order and never aliases the input.
type Selector interface {
	Policy() Policy
	Select(cands []Candidate) ([]Candidate, error)
}

// TopK keeps the N best-scored candidates. Render order is score order, not
// chronological; ties keep their input order.
type TopK struct {
	N int
}

func (TopK) Policy() Policy { return PolicyTopK }

func (s TopK) Select(cands []Candidate) ([]Candidate, error) {
	if len(cands) == 0 {
		return nil, fmt.Errorf("top-k: no scored segments: %w", ErrInsufficientMaterial)
	}
	out := append([]Candidate(nil), cands...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if s.N >= 0 && len(out) > s.N {
		out = out[:s.N]
	}
	return out, nil
}

// MotionPack merges nearby motion runs, pads and bounds them, then keeps the
// longest ones until FillRatio of the video is covered. Render order is
// chronological.
type MotionPack struct {
	MaxGap        float64
	Pad           float64
	MinClip       float64
	MaxClip       float64
	FillRatio     float64
	VideoDuration float64
}

func DefaultMotionPack(videoDuration float64) MotionPack {
	return MotionPack{
		MaxGap:        1.0,
		Pad:           0.3,
		MinClip:       3,
		MaxClip:       23,
		FillRatio:     0.1,
		VideoDuration: videoDuration,
	}
}

func (MotionPack) Policy() Policy { return PolicyMotionPack }

func (s MotionPack) Select(cands []Candidate) ([]Candidate, error) {
	valid := s.Valid(cands)
	if len(valid) == 0 {
		return nil, fmt.Errorf("motion pack: no segments within %.0f-%.0fs: %w", s.MinClip, s.MaxClip, ErrInsufficientMaterial)
	}

	sort.SliceStable(valid, func(i, j int) bool { return valid[i].Duration() > valid[j].Duration() })

	target := s.FillRatio * s.VideoDuration
	var picked []Candidate
	total := 0.0
	for _, c := range valid {
		picked = append(picked, c)
		total += c.Duration()
		if total >= target {
			break
		}
	}
	SortChronological(picked)
	return picked, nil
}

// Valid merges, pads and duration-filters the raw candidates, returning them
// chronologically. It is the pool both Select and PackToTarget draw from.
func (s MotionPack) Valid(cands []Candidate) []Candidate {
	var out []Candidate
	for _, c := range MergeCandidates(cands, s.MaxGap) {
		end := c.Interval.End + s.Pad
		if s.VideoDuration > 0 {
			end = math.Min(end, s.VideoDuration)
		}
		c.Interval.End = end
		if d := c.Duration(); d >= s.MinClip && d <= s.MaxClip {
			out = append(out, c)
		}
	}
	return out
}

// MergeIntervals joins intervals whose gap is at most maxGap. Merging an
// already merged list returns an equal list.
func MergeIntervals(ivs []types.TimeInterval, maxGap float64) []types.TimeInterval {
	cands := make([]Candidate, len(ivs))
	for i, iv := range ivs {
		cands[i] = Candidate{Interval: iv, Index: i}
	}
	return Intervals(MergeCandidates(cands, maxGap))
}

// MergeCandidates is MergeIntervals for candidates; a merged candidate keeps
// the index of its first member and the highest score.
func MergeCandidates(cands []Candidate, maxGap float64) []Candidate {
	if len(cands) == 0 {
		return nil
	}
	sorted := append([]Candidate(nil), cands...)
	SortChronological(sorted)

	out := []Candidate{sorted[0]}
	for _, cur := range sorted[1:] {
		prev := &out[len(out)-1]
		if cur.Interval.Start-prev.Interval.End <= maxGap {
			prev.Interval.End = math.Max(prev.Interval.End, cur.Interval.End)
			prev.Score = math.Max(prev.Score, cur.Score)
			continue
		}
		out = append(out, cur)
	}
	return out
}

// PackToTarget picks whole chronological candidates for a reel of at most
// target seconds. When everything fits, everything is used.
func PackToTarget(chrono []Candidate, target float64) []Candidate {
	if TotalDuration(chrono) <= target {
		return append([]Candidate(nil), chrono...)
	}
	var out []Candidate
	total := 0.0
	for _, c := range chrono {
		if total+c.Duration() > target {
			break
		}
		out = append(out, c)
		total += c.Duration()
	}
	return out
}

func SortChronological(cands []Candidate) {
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].Interval.Start < cands[j].Interval.Start })
}
