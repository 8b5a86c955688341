package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/forPelevin/reelcut/internal/domain/highlights"
	"github.com/forPelevin/reelcut/internal/domain/subtitles"
	"github.com/forPelevin/reelcut/internal/ports"
	"github.com/forPelevin/reelcut/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/reelcut/internal/ports/adapters/whispercpp"
	"github.com/forPelevin/reelcut/internal/ports/adapters/ytdlp"
	"github.com/forPelevin/reelcut/internal/types"
	"github.com/forPelevin/reelcut/internal/usecase"
)

type Mode string

const (
	ModeHighlights Mode = "highlights"
	ModeMotion     Mode = "motion"
	ModeShorts     Mode = "shorts"
)

const (
	HighlightsManifest = "highlights.json"
	FramesManifest     = "frames.json"
	ReelsManifest      = "reels.json"
	ShortsManifest     = "shorts.json"
)

type Config struct {
	// Input is a local video path or an http(s) URL.
	Input  string
	OutDir string
	Logger zerolog.Logger

	// CacheDir is the base directory for scratch audio and transcripts.
	// If empty, defaults to ".cache".
	CacheDir string

	Clips            int
	MaxClip          float64
	ShortsMaxClip    float64
	FramesPerSegment int
	BurnSubtitles    bool
	Merge            bool
	Keywords         []string
	SubtitleStyle    subtitles.Style

	Landscape types.Canvas
	Portrait  types.Canvas
	Instagram types.Canvas

	Motion      highlights.MotionPack
	ReelTargets []usecase.ReelTarget
	Platforms   []highlights.Platform

	FFmpegPath      string
	FFprobePath     string
	WhisperBin      string
	WhisperModel    string
	WhisperLanguage string
	YtDlpPath       string

	// Adapters replaces the external tools. Nil uses ffmpeg, whisper.cpp
	// and yt-dlp from the paths above.
	Adapters *Adapters
}

type Adapters struct {
	Video      ports.VideoTool
	Scenes     ports.SceneDetector
	ASR        ports.ASR
	Downloader ports.Downloader
}

func (c Config) Validate(m Mode) error {
	if c.Input == "" {
		return errors.New("input is empty")
	}
	if !ytdlp.IsURL(c.Input) {
		if _, err := os.Stat(c.Input); err != nil {
			return fmt.Errorf("stat input: %w", err)
		}
	}
	for _, cv := range []types.Canvas{c.Landscape, c.Portrait, c.Instagram} {
		if cv.Name == "" || cv.Width <= 0 || cv.Height <= 0 {
			return fmt.Errorf("canvas %q must have a name and positive size", cv.Name)
		}
	}
	if c.FramesPerSegment < 0 {
		return errors.New("frames per segment must be >= 0")
	}

	switch m {
	case ModeHighlights, ModeShorts:
		if m == ModeHighlights && c.Clips <= 0 {
			return errors.New("clips must be > 0")
		}
		if c.MaxClip < 0 || c.ShortsMaxClip < 0 {
			return errors.New("max clip must be >= 0")
		}
		if c.WhisperModel == "" && c.Adapters == nil {
			return errors.New("whisper model path is required")
		}
		if m == ModeShorts {
			return validatePlatforms(c.Platforms)
		}
	case ModeMotion:
		mp := c.Motion
		if mp.MinClip <= 0 || mp.MaxClip < mp.MinClip {
			return fmt.Errorf("motion clip bounds must satisfy 0 < min <= max, got %.1f..%.1f", mp.MinClip, mp.MaxClip)
		}
		if mp.FillRatio <= 0 || mp.FillRatio > 1 {
			return errors.New("motion fill ratio must be in (0, 1]")
		}
		for _, t := range c.ReelTargets {
			if t.Name == "" || t.Duration <= 0 {
				return fmt.Errorf("reel target %q must have a positive duration", t.Name)
			}
		}
	default:
		return fmt.Errorf("unknown mode %q", m)
	}
	return nil
}

func validatePlatforms(ps []highlights.Platform) error {
	if len(ps) == 0 {
		return errors.New("at least one platform is required")
	}
	for _, p := range ps {
		if p.Name == "" || p.MaxDuration <= 0 || p.Clips <= 0 {
			return fmt.Errorf("platform %q needs a positive max duration and clip count", p.Name)
		}
	}
	return nil
}

// Result points at the job directory and the manifests written into it.
type Result struct {
	OutDir    string
	Manifests []string
}

type job struct {
	cfg     Config
	log     zerolog.Logger
	uc      usecase.Usecase
	source  string
	outDir  string
	workDir string
	written []string
}

func prepare(ctx context.Context, cfg Config) (*job, error) {
	log := cfg.Logger.With().Str("component", "pipeline").Logger()
	ad := cfg.Adapters
	if ad == nil {
		ad = defaultAdapters(cfg)
	}

	outRoot := cfg.OutDir
	if outRoot == "" {
		outRoot = "out"
	}
	runOutDir := buildRunOutDir(outRoot, cfg.Input, time.Now().UTC())
	if err := os.MkdirAll(runOutDir, 0o755); err != nil {
		return nil, err
	}
	log.Info().Str("dir", runOutDir).Msg("output run dir")

	baseCache := cfg.CacheDir
	if baseCache == "" {
		baseCache = ".cache"
	}
	workDir := filepath.Join(baseCache, "runs", hash(cfg.Input))
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, err
	}
	log.Debug().Str("dir", workDir).Msg("cache")

	source := cfg.Input
	if ytdlp.IsURL(source) {
		log.Info().Str("url", source).Msg("downloading source")
		p, err := ad.Downloader.Download(ctx, source, filepath.Join(runOutDir, "source"))
		if err != nil {
			return nil, fmt.Errorf("download source: %w", err)
		}
		source = p
	}

	return &job{
		cfg: cfg,
		log: log,
		uc: usecase.New(usecase.Deps{
			Video:  ad.Video,
			Scenes: ad.Scenes,
			ASR:    ad.ASR,
			Log:    cfg.Logger,
		}),
		source:  source,
		outDir:  runOutDir,
		workDir: workDir,
	}, nil
}

func defaultAdapters(cfg Config) *Adapters {
	style := cfg.SubtitleStyle
	if style.FontSize <= 0 {
		style = subtitles.DefaultStyle()
	}
	v := ffmpeg.New(cfg.FFmpegPath, cfg.FFprobePath, cfg.Logger).WithStyle(style)
	return &Adapters{
		Video:      v,
		Scenes:     v,
		ASR:        whispercpp.New(cfg.WhisperBin, cfg.WhisperModel, cfg.WhisperLanguage, cfg.Logger),
		Downloader: ytdlp.New(cfg.YtDlpPath, cfg.Logger),
	}
}

func (j *job) highlightsInput(numClips int, maxClip float64) usecase.HighlightsInput {
	return usecase.HighlightsInput{
		Source:           j.source,
		NumClips:         numClips,
		MaxClip:          maxClip,
		Keywords:         j.cfg.Keywords,
		BurnSubtitles:    j.cfg.BurnSubtitles,
		Landscape:        j.cfg.Landscape,
		Portrait:         j.cfg.Portrait,
		FrameCanvases:    []types.Canvas{j.cfg.Landscape, j.cfg.Portrait, j.cfg.Instagram},
		FramesPerSegment: j.cfg.FramesPerSegment,
		Merge:            j.cfg.Merge,
		WorkDir:          j.workDir,
		OutDir:           j.outDir,
	}
}

func (j *job) result() Result {
	return Result{OutDir: j.outDir, Manifests: j.written}
}

// RunHighlights renders the top-scored transcript segments and writes
// highlights.json and frames.json, plus reels.json when merging.
func RunHighlights(ctx context.Context, cfg Config) (Result, error) {
	j, err := prepare(ctx, cfg)
	if err != nil {
		return Result{}, err
	}
	res, err := j.uc.Highlights(ctx, j.highlightsInput(cfg.Clips, cfg.MaxClip))
	if err != nil {
		return j.result(), err
	}
	if err := j.writeHighlights(res); err != nil {
		return j.result(), err
	}
	j.log.Info().Int("highlights", len(res.Highlights)).Int("frames", len(res.Frames)).Msg("done")
	return j.result(), nil
}

// RunMotion builds the motion reels and writes reels.json and frames.json.
func RunMotion(ctx context.Context, cfg Config) (Result, error) {
	j, err := prepare(ctx, cfg)
	if err != nil {
		return Result{}, err
	}
	res, err := j.uc.Motion(ctx, usecase.MotionInput{
		Source:           j.source,
		Pack:             cfg.Motion,
		Canvases:         []types.Canvas{cfg.Landscape, cfg.Portrait},
		Targets:          cfg.ReelTargets,
		FrameCanvases:    []types.Canvas{cfg.Instagram},
		FramesPerSegment: cfg.FramesPerSegment,
		OutDir:           j.outDir,
	})
	if err != nil {
		return j.result(), err
	}
	if err := j.write(ReelsManifest, orEmpty(res.Reels)); err != nil {
		return j.result(), err
	}
	if err := j.write(FramesManifest, orEmpty(res.Frames)); err != nil {
		return j.result(), err
	}
	j.log.Info().Int("reels", len(res.Reels)).Int("frames", len(res.Frames)).Msg("done")
	return j.result(), nil
}

// RunShorts extracts a large highlight pool and packs it into platform
// clips, writing shorts.json next to the highlight manifests.
func RunShorts(ctx context.Context, cfg Config) (Result, error) {
	j, err := prepare(ctx, cfg)
	if err != nil {
		return Result{}, err
	}
	res, err := j.uc.Shorts(ctx, usecase.ShortsInput{
		Highlights: j.highlightsInput(0, cfg.ShortsMaxClip),
		Platforms:  cfg.Platforms,
	})
	if err != nil {
		return j.result(), err
	}
	if err := j.writeHighlights(res.Highlights); err != nil {
		return j.result(), err
	}
	if err := j.write(ShortsManifest, orEmpty(res.Clips)); err != nil {
		return j.result(), err
	}
	j.log.Info().Int("clips", len(res.Clips)).Msg("done")
	return j.result(), nil
}

func (j *job) writeHighlights(res usecase.HighlightsResult) error {
	if err := j.write(HighlightsManifest, orEmpty(res.Highlights)); err != nil {
		return err
	}
	if err := j.write(FramesManifest, orEmpty(res.Frames)); err != nil {
		return err
	}
	if j.cfg.Merge {
		return j.write(ReelsManifest, orEmpty(res.Reels))
	}
	return nil
}

func (j *job) write(name string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	p := filepath.Join(j.outDir, name)
	if err := os.WriteFile(p, b, 0o644); err != nil {
		return err
	}
	j.written = append(j.written, p)
	j.log.Info().Str("path", p).Msg("manifest written")
	return nil
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func buildRunOutDir(outRoot, input string, now time.Time) string {
	name := normalizePathSegment(inputName(input))
	if name == "" {
		name = "input"
	}
	ts := now.UTC().Format("20060102-150405Z")
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return filepath.Join(outRoot, fmt.Sprintf("%s-%s-%s", name, ts, suffix))
}

// inputName is the file stem of a local path or the last path element of
// a URL, falling back to its host.
func inputName(input string) string {
	if ytdlp.IsURL(input) {
		u, _ := url.Parse(input)
		base := path.Base(u.Path)
		if base == "/" || base == "." || base == "watch" {
			if v := u.Query().Get("v"); v != "" {
				return v
			}
			return u.Host
		}
		return strings.TrimSuffix(base, path.Ext(base))
	}
	return strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
}

func normalizePathSegment(s string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

// hash is a stable short key for s.
func hash(s string) string {
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte(s))
	return strings.ReplaceAll(id.String(), "-", "")[:12]
}

// ensure adapters implement ports
var (
	_ ports.VideoTool     = (*ffmpeg.Adapter)(nil)
	_ ports.SceneDetector = (*ffmpeg.Adapter)(nil)
	_ ports.ASR           = (*whispercpp.Adapter)(nil)
	_ ports.Downloader    = (*ytdlp.Adapter)(nil)
)
