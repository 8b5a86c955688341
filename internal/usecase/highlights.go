package usecase

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/forPelevin/reelcut/internal/domain/highlights"
	"github.com/forPelevin/reelcut/internal/domain/subtitles"
	"github.com/forPelevin/reelcut/internal/types"
)

type HighlightsInput struct {
	Source        string
	NumClips      int
	MaxClip       float64
	Keywords      []string
	BurnSubtitles bool

	Landscape types.Canvas
	Portrait  types.Canvas

	FrameCanvases    []types.Canvas
	FramesPerSegment int

	// Merge additionally concatenates the produced clips of each format.
	Merge bool

	WorkDir string
	OutDir  string
}

type HighlightsResult struct {
	Highlights []types.HighlightEntry
	Frames     []types.FrameEntry
	Reels      []types.ReelEntry
}

// Highlights runs the transcript-driven pipeline: score transcript
// segments, keep the top NumClips, render each in both formats and sample
// stills. Clips are rendered in score order.
func (u Usecase) Highlights(ctx context.Context, in HighlightsInput) (HighlightsResult, error) {
	ex := u.extractor(in.Source, in.WorkDir)

	tr := ex.Transcript(ctx)
	u.log.Info().Int("segments", len(tr.Segments)).Msg("transcript")
	scenes := ex.Scenes(ctx)
	peaks := ex.AudioPeaks(ctx)

	keywords := in.Keywords
	if keywords == nil {
		keywords = highlights.DefaultKeywords
	}
	scored := highlights.ScoreTranscript(tr, peaks, scenes, keywords)
	u.log.Info().Int("scored", len(scored)).Int("scenes", len(scenes)).Int("peaks", len(peaks)).Msg("segments scored")

	cands := highlights.CapDuration(highlights.FromScored(scored), in.MaxClip)
	picked, err := highlights.TopK{N: in.NumClips}.Select(cands)
	if err != nil {
		return HighlightsResult{}, err
	}

	var res HighlightsResult
	var landscapeClips, portraitClips []producedClip
	for i, c := range picked {
		seg := scored[c.Index]
		n := i + 1
		u.log.Info().Int("highlight", n).Float64("start", c.Interval.Start).Float64("end", c.Interval.End).Float64("score", c.Score).Msg("rendering")

		var cues []types.Cue
		if in.BurnSubtitles {
			cues = subtitles.ForInterval(tr, c.Interval)
		}
		entry := types.HighlightEntry{
			Start:    c.Interval.Start,
			End:      c.Interval.End,
			Text:     seg.Text,
			Score:    c.Score,
			Hashtags: seg.Hashtags,
		}
		entry.File = u.render(ctx, clipJob(in, in.Landscape, c.Interval, cues, n), in.OutDir)
		entry.PortraitFile = u.render(ctx, clipJob(in, in.Portrait, c.Interval, cues, n), in.OutDir)
		if entry.File != nil {
			landscapeClips = append(landscapeClips, producedClip{filepath.Join(in.OutDir, *entry.File), c})
		}
		if entry.PortraitFile != nil {
			portraitClips = append(portraitClips, producedClip{filepath.Join(in.OutDir, *entry.PortraitFile), c})
		}
		res.Highlights = append(res.Highlights, entry)
	}

	if in.FramesPerSegment > 0 && len(in.FrameCanvases) > 0 {
		ivs := highlights.Intervals(picked)
		res.Frames = u.frames().Extract(ctx, in.Source, ivs, in.FrameCanvases, in.FramesPerSegment, in.OutDir)
	}

	if in.Merge {
		res.Reels = append(res.Reels,
			u.mergedReel(ctx, in, in.Landscape, landscapeClips),
			u.mergedReel(ctx, in, in.Portrait, portraitClips),
		)
	}
	return res, nil
}

func clipJob(in HighlightsInput, c types.Canvas, iv types.TimeInterval, cues []types.Cue, n int) types.RenderJob {
	return types.RenderJob{
		Source:    in.Source,
		Interval:  iv,
		Canvas:    c,
		Subtitles: cues,
		Output:    filepath.Join(in.OutDir, c.Name, fmt.Sprintf("highlight_%d.mp4", n)),
	}
}

type producedClip struct {
	path string
	cand highlights.Candidate
}

func (u Usecase) mergedReel(ctx context.Context, in HighlightsInput, c types.Canvas, clips []producedClip) types.ReelEntry {
	used := make([]highlights.Candidate, len(clips))
	parts := make([]string, len(clips))
	for i, pc := range clips {
		used[i], parts[i] = pc.cand, pc.path
	}
	reel := types.ReelEntry{
		Name:     "merged_highlights",
		Format:   c.Name,
		Duration: highlights.TotalDuration(used),
		Segments: highlights.Intervals(used),
	}
	if len(parts) == 0 {
		return reel
	}
	out := filepath.Join(in.OutDir, fmt.Sprintf("merged_highlights_%s.mp4", c.Name))
	reel.File = u.concat(ctx, parts, c, 0, out, in.OutDir)
	return reel
}
