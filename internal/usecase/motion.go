package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/forPelevin/reelcut/internal/domain/highlights"
	"github.com/forPelevin/reelcut/internal/types"
)

// ReelTarget is a duration-capped reel assembled from whole motion segments.
type ReelTarget struct {
	Name     string  `yaml:"name"`
	Duration float64 `yaml:"duration"`
}

var DefaultReelTargets = []ReelTarget{
	{Name: "short", Duration: 58},
	{Name: "story", Duration: 15},
}

type MotionInput struct {
	Source string
	Pack   highlights.MotionPack

	Canvases []types.Canvas
	Targets  []ReelTarget

	FrameCanvases    []types.Canvas
	FramesPerSegment int

	OutDir string
}

type MotionResult struct {
	Reels  []types.ReelEntry
	Frames []types.FrameEntry
}

// Motion runs the motion-driven pipeline: pick sustained-motion segments,
// concatenate them chronologically into a main reel per canvas, then build
// the duration-capped reels from the full valid pool.
func (u Usecase) Motion(ctx context.Context, in MotionInput) (MotionResult, error) {
	info, err := u.d.Video.Probe(ctx, in.Source)
	if err != nil {
		return MotionResult{}, fmt.Errorf("probe source: %w", err)
	}
	pack := in.Pack
	pack.VideoDuration = info.Duration

	ex := u.extractor(in.Source, in.OutDir)
	raw := highlights.FromMotion(ex.Motion(ctx))
	u.log.Info().Int("runs", len(raw)).Float64("duration", info.Duration).Msg("motion candidates")

	main, err := pack.Select(raw)
	if err != nil {
		return MotionResult{}, err
	}
	pool := pack.Valid(raw)
	u.log.Info().Int("selected", len(main)).Int("valid", len(pool)).Float64("total", highlights.TotalDuration(main)).Msg("motion segments")

	partsDir, err := os.MkdirTemp(in.OutDir, ".parts-*")
	if err != nil {
		return MotionResult{}, err
	}
	defer os.RemoveAll(partsDir)
	parts := newPartCache(u, in.Source, partsDir)

	var res MotionResult
	for _, c := range in.Canvases {
		res.Reels = append(res.Reels, u.motionReel(ctx, parts, in, "main", c, main))
	}
	for _, tgt := range in.Targets {
		segs := highlights.PackToTarget(pool, tgt.Duration)
		if len(segs) == 0 {
			u.log.Warn().Str("reel", tgt.Name).Float64("target", tgt.Duration).Msg("no segments fit the target")
			continue
		}
		for _, c := range in.Canvases {
			res.Reels = append(res.Reels, u.motionReel(ctx, parts, in, tgt.Name, c, segs))
		}
	}

	if in.FramesPerSegment > 0 && len(in.FrameCanvases) > 0 {
		res.Frames = u.frames().Extract(ctx, in.Source, highlights.Intervals(main), in.FrameCanvases, in.FramesPerSegment, in.OutDir)
	}
	return res, nil
}

func (u Usecase) motionReel(ctx context.Context, parts *partCache, in MotionInput, name string, c types.Canvas, segs []highlights.Candidate) types.ReelEntry {
	reel := types.ReelEntry{
		Name:     name,
		Format:   c.Name,
		Duration: highlights.TotalDuration(segs),
		Segments: highlights.Intervals(segs),
	}
	var files []string
	for _, s := range segs {
		if p, ok := parts.get(ctx, c, s.Interval); ok {
			files = append(files, p)
		}
	}
	if len(files) == 0 {
		u.log.Error().Str("reel", name).Str("canvas", c.Name).Msg("no parts rendered")
		return reel
	}
	out := filepath.Join(in.OutDir, fmt.Sprintf("merged_highlights_%s_%s.mp4", name, c.Name))
	reel.File = u.concat(ctx, files, c, 0, out, in.OutDir)
	return reel
}

// partCache renders each (canvas, interval) pair at most once so the main,
// short and story reels can share parts.
type partCache struct {
	u      Usecase
	source string
	dir    string
	done   map[string]string
	failed map[string]bool
}

func newPartCache(u Usecase, source, dir string) *partCache {
	return &partCache{u: u, source: source, dir: dir, done: map[string]string{}, failed: map[string]bool{}}
}

func (p *partCache) get(ctx context.Context, c types.Canvas, iv types.TimeInterval) (string, bool) {
	key := fmt.Sprintf("%s/%.3f-%.3f", c.Name, iv.Start, iv.End)
	if path, ok := p.done[key]; ok {
		return path, true
	}
	if p.failed[key] {
		return "", false
	}
	out := filepath.Join(p.dir, c.Name, fmt.Sprintf("part_%03d.mp4", len(p.done)+len(p.failed)+1))
	job := types.RenderJob{Source: p.source, Interval: iv, Canvas: c, Output: out}
	if p.u.render(ctx, job, p.dir) == nil {
		p.failed[key] = true
		return "", false
	}
	p.done[key] = out
	return out, true
}
