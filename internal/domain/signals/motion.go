package signals

import (
	"math"

	"github.com/samber/lo"

	"github.com/forPelevin/reelcut/internal/types"
)

const (
	DefaultMotionFPS       = 30.0
	DefaultMotionMinFrames = 3
	motionStdFactor        = 0.2
)

// MotionThreshold is mean + 0.2*std (population) of the per-frame scores.
func MotionThreshold(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	mean := lo.Sum(scores) / float64(len(scores))
	v := 0.0
	for _, s := range scores {
		v += (s - mean) * (s - mean)
	}
	return mean + motionStdFactor*math.Sqrt(v/float64(len(scores)))
}

// MotionCandidates turns per-frame difference scores into intervals of
// sustained motion. A run of at least minFrames frames above the threshold
// that starts at frame s and ends at frame e becomes (s/fps, e/fps). A run
// still open at the last frame is discarded.
func MotionCandidates(scores []float64, fps float64, minFrames int) []types.MotionInterval {
	if len(scores) == 0 || fps <= 0 {
		return nil
	}
	th := MotionThreshold(scores)

	var out []types.MotionInterval
	start, sum := -1, 0.0
	for i, s := range scores {
		if s > th {
			if start < 0 {
				start = i
				sum = 0
			}
			sum += s
			continue
		}
		if start >= 0 && i-start >= minFrames {
			out = append(out, types.MotionInterval{
				Interval:         types.TimeInterval{Start: float64(start) / fps, End: float64(i-1) / fps},
				FrameMotionScore: sum / float64(i-start),
			})
		}
		start = -1
	}
	return out
}
