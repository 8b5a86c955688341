package usecase

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/forPelevin/reelcut/internal/domain/frames"
	"github.com/forPelevin/reelcut/internal/domain/signals"
	"github.com/forPelevin/reelcut/internal/ports"
	"github.com/forPelevin/reelcut/internal/types"
)

type Deps struct {
	Video  ports.VideoTool
	Scenes ports.SceneDetector
	ASR    ports.ASR
	Log    zerolog.Logger
}

type Usecase struct {
	d   Deps
	log zerolog.Logger
}

func New(d Deps) Usecase {
	return Usecase{d: d, log: d.Log.With().Str("component", "usecase").Logger()}
}

func (u Usecase) extractor(source, workDir string) *signals.Extractor {
	return signals.NewExtractor(signals.Deps{
		Video:  u.d.Video,
		Scenes: u.d.Scenes,
		ASR:    u.d.ASR,
		Log:    u.d.Log,
	}, source, workDir)
}

func (u Usecase) frames() *frames.Extractor {
	return frames.NewExtractor(u.d.Video, u.d.Log)
}

// render produces one clip and returns its path relative to outDir, or nil
// when the clip could not be produced.
func (u Usecase) render(ctx context.Context, job types.RenderJob, outDir string) *string {
	if err := os.MkdirAll(filepath.Dir(job.Output), 0o755); err != nil {
		u.log.Error().Err(err).Str("output", job.Output).Msg("create clip dir")
		return nil
	}
	if err := u.d.Video.RenderClip(ctx, job); err != nil {
		u.log.Error().Err(err).Str("output", job.Output).Msg("clip not produced")
		return nil
	}
	return relPath(outDir, job.Output)
}

// concat joins parts into out and returns its path relative to outDir, or
// nil on failure.
func (u Usecase) concat(ctx context.Context, parts []string, c types.Canvas, maxDur float64, out, outDir string) *string {
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		u.log.Error().Err(err).Str("output", out).Msg("create reel dir")
		return nil
	}
	if err := u.d.Video.ConcatClips(ctx, parts, c, maxDur, out); err != nil {
		u.log.Error().Err(err).Str("output", out).Msg("reel not produced")
		return nil
	}
	return relPath(outDir, out)
}

func relPath(base, p string) *string {
	rel, err := filepath.Rel(base, p)
	if err != nil {
		rel = p
	}
	rel = filepath.ToSlash(rel)
	return &rel
}
