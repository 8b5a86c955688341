package usecase

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"sort"

	"github.com/samber/lo"

	"github.com/forPelevin/reelcut/internal/domain/highlights"
	"github.com/forPelevin/reelcut/internal/types"
)

const (
	minInitialHighlights = 10
	secondsPerHighlight  = 5.0
)

type ShortsInput struct {
	Highlights HighlightsInput
	Platforms  []highlights.Platform
}

type ShortsResult struct {
	Highlights HighlightsResult
	Clips      []types.PlatformClip
}

// InitialHighlights is how many highlights to extract so that the longest
// platform output can be filled from roughly five-second pieces.
func InitialHighlights(platforms []highlights.Platform) int {
	longest := lo.Max(lo.Map(platforms, func(p highlights.Platform, _ int) float64 { return p.MaxDuration }))
	clips := lo.Max(lo.Map(platforms, func(p highlights.Platform, _ int) int { return p.Clips }))
	perClip := 1.0
	if longest > 0 {
		perClip = math.Ceil(longest / secondsPerHighlight)
	}
	return max(minInitialHighlights, clips*int(perClip))
}

// Shorts extracts a large set of portrait highlights and packs them into
// per-platform clips. Each platform draws from the whole pool.
func (u Usecase) Shorts(ctx context.Context, in ShortsInput) (ShortsResult, error) {
	hin := in.Highlights
	hin.NumClips = InitialHighlights(in.Platforms)
	u.log.Info().Int("initial", hin.NumClips).Float64("max_clip", hin.MaxClip).Msg("extracting initial highlights")

	hres, err := u.Highlights(ctx, hin)
	if err != nil {
		return ShortsResult{}, err
	}
	res := ShortsResult{Highlights: hres}

	pool := u.portraitPool(ctx, hin.OutDir, hres.Highlights)
	if len(pool.Entries) == 0 {
		return res, fmt.Errorf("no portrait highlights to pack: %w", highlights.ErrInsufficientMaterial)
	}

	for _, pl := range in.Platforms {
		pool.Reset()
		packs := highlights.PackPlatform(pool, pl)
		if len(packs) < pl.Clips {
			u.log.Warn().Str("platform", pl.Name).Int("wanted", pl.Clips).Int("got", len(packs)).Msg("not enough material for all platform clips")
		}
		for i, pk := range packs {
			n := i + 1
			clip := types.PlatformClip{
				Platform: pl.Name,
				Index:    n,
				Parts:    lo.Map(pk.Parts, func(e highlights.PoolEntry, _ int) string { return e.Name }),
				Duration: pk.Duration,
				Trimmed:  pk.Trimmed,
			}
			paths := lo.Map(pk.Parts, func(e highlights.PoolEntry, _ int) string { return e.Path })
			out := filepath.Join(hin.OutDir, pl.Name, fmt.Sprintf("%s_clip_%d.mp4", pl.Name, n))
			clip.File = u.concat(ctx, paths, hin.Portrait, pk.Duration, out, hin.OutDir)
			res.Clips = append(res.Clips, clip)
		}
	}
	return res, nil
}

// portraitPool probes every produced portrait highlight and orders the
// pool by source start time.
func (u Usecase) portraitPool(ctx context.Context, outDir string, entries []types.HighlightEntry) *highlights.Pool {
	type item struct {
		start float64
		entry highlights.PoolEntry
	}
	var items []item
	for _, e := range entries {
		if e.PortraitFile == nil {
			continue
		}
		path := filepath.Join(outDir, filepath.FromSlash(*e.PortraitFile))
		d, err := u.d.Video.ProbeDuration(ctx, path)
		if err != nil || d <= 0 {
			u.log.Warn().Err(err).Str("file", path).Msg("skipping highlight without duration")
			continue
		}
		items = append(items, item{start: e.Start, entry: highlights.PoolEntry{
			Name:     filepath.Base(path),
			Path:     path,
			Duration: d,
		}})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].start < items[j].start })
	return highlights.NewPool(lo.Map(items, func(it item, _ int) highlights.PoolEntry { return it.entry }))
}
