package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/forPelevin/reelcut/internal/config"
	"github.com/forPelevin/reelcut/internal/domain/highlights"
	"github.com/forPelevin/reelcut/internal/logging"
	"github.com/forPelevin/reelcut/internal/pipeline"
	"github.com/forPelevin/reelcut/internal/ports/adapters/ytdlp"
)

const jobTimeout = 3 * time.Hour

func runHighlights(cmd *cobra.Command, input string) error {
	cfg, err := buildConfig(cmd, input)
	if err != nil {
		return err
	}
	if v, _ := cmd.Flags().GetInt("clips"); cmd.Flags().Changed("clips") {
		cfg.Clips = v
	}
	if v, _ := cmd.Flags().GetFloat64("max"); cmd.Flags().Changed("max") {
		cfg.MaxClip = v
	}
	cfg.Merge, _ = cmd.Flags().GetBool("merge")
	return execute(cmd, cfg, pipeline.ModeHighlights, pipeline.RunHighlights)
}

func runMotion(cmd *cobra.Command, input string) error {
	cfg, err := buildConfig(cmd, input)
	if err != nil {
		return err
	}
	return execute(cmd, cfg, pipeline.ModeMotion, pipeline.RunMotion)
}

func runShorts(cmd *cobra.Command, input string) error {
	cfg, err := buildConfig(cmd, input)
	if err != nil {
		return err
	}
	names, _ := cmd.Flags().GetStringSlice("platforms")
	cfg.Platforms, err = selectPlatforms(cfg.Platforms, names)
	if err != nil {
		return err
	}
	if v, _ := cmd.Flags().GetInt("clips"); cmd.Flags().Changed("clips") {
		cfg.Platforms = lo.Map(cfg.Platforms, func(p highlights.Platform, _ int) highlights.Platform {
			p.Clips = v
			return p
		})
	}
	return execute(cmd, cfg, pipeline.ModeShorts, pipeline.RunShorts)
}

func execute(cmd *cobra.Command, cfg pipeline.Config, m pipeline.Mode, run func(context.Context, pipeline.Config) (pipeline.Result, error)) error {
	if err := cfg.Validate(m); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), jobTimeout)
	defer cancel()

	res, err := run(ctx, cfg)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), res.OutDir)
	return nil
}

// buildConfig layers flags over the config file over defaults.
func buildConfig(cmd *cobra.Command, input string) (pipeline.Config, error) {
	level, _ := cmd.Flags().GetString("log-level")
	log, err := logging.New(level, cmd.ErrOrStderr())
	if err != nil {
		return pipeline.Config{}, err
	}

	path, _ := cmd.Flags().GetString("config")
	fc, err := config.Load(path)
	if err != nil {
		return pipeline.Config{}, err
	}

	if !ytdlp.IsURL(input) {
		if input, err = filepath.Abs(input); err != nil {
			return pipeline.Config{}, err
		}
	}

	cfg := fromFile(fc, input, log)
	if v, _ := cmd.Flags().GetString("out"); v != "" {
		cfg.OutDir = v
	}
	if v, _ := cmd.Flags().GetString("cache"); v != "" {
		cfg.CacheDir = v
	}
	if v, _ := cmd.Flags().GetInt("frames"); cmd.Flags().Changed("frames") {
		cfg.FramesPerSegment = v
	}
	if v, _ := cmd.Flags().GetStringSlice("keywords"); cmd.Flags().Changed("keywords") {
		cfg.Keywords = v
	}
	if v, err := cmd.Flags().GetBool("no-subtitles"); err == nil && cmd.Flags().Changed("no-subtitles") {
		cfg.BurnSubtitles = !v
	}
	return cfg, nil
}

func fromFile(fc *config.Config, input string, log zerolog.Logger) pipeline.Config {
	return pipeline.Config{
		Input:            input,
		OutDir:           fc.OutDir,
		CacheDir:         fc.CacheDir,
		Logger:           log,
		Clips:            fc.Clips,
		MaxClip:          fc.MaxClip,
		ShortsMaxClip:    fc.ShortsMaxClip,
		FramesPerSegment: fc.FramesPerSegment,
		BurnSubtitles:    fc.BurnSubtitles,
		Keywords:         fc.Keywords,
		Landscape:        fc.Canvases.Landscape,
		Portrait:         fc.Canvases.Portrait,
		Instagram:        fc.Canvases.Instagram,
		Motion:           fc.Motion.Pack(0),
		ReelTargets:      fc.Motion.Targets,
		Platforms:        fc.Platforms,
		FFmpegPath:       fc.Tools.FFmpeg,
		FFprobePath:      fc.Tools.FFprobe,
		WhisperBin:       fc.Tools.WhisperBin,
		WhisperModel:     fc.Tools.WhisperModel,
		WhisperLanguage:  fc.Tools.WhisperLanguage,
		YtDlpPath:        fc.Tools.YtDlp,
	}
}

func selectPlatforms(all []highlights.Platform, names []string) ([]highlights.Platform, error) {
	if len(names) == 0 {
		return all, nil
	}
	var out []highlights.Platform
	for _, n := range names {
		p, ok := lo.Find(all, func(p highlights.Platform) bool { return strings.EqualFold(p.Name, strings.TrimSpace(n)) })
		if !ok {
			return nil, fmt.Errorf("unknown platform %q", n)
		}
		out = append(out, p)
	}
	return out, nil
}
