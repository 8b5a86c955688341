package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/forPelevin/reelcut/internal/domain/highlights"
	"github.com/forPelevin/reelcut/internal/types"
	"github.com/forPelevin/reelcut/internal/usecase"
)

// Config is the file-level configuration. Flags override it.
type Config struct {
	OutDir   string `yaml:"out_dir"`
	CacheDir string `yaml:"cache_dir"`

	Clips            int      `yaml:"clips"`
	MaxClip          float64  `yaml:"max_clip"`
	ShortsMaxClip    float64  `yaml:"shorts_max_clip"`
	FramesPerSegment int      `yaml:"frames_per_segment"`
	BurnSubtitles    bool     `yaml:"burn_subtitles"`
	Keywords         []string `yaml:"keywords"`

	Canvases  CanvasConfig          `yaml:"canvases"`
	Motion    MotionConfig          `yaml:"motion"`
	Platforms []highlights.Platform `yaml:"platforms"`
	Tools     ToolsConfig           `yaml:"tools"`
}

type CanvasConfig struct {
	Landscape types.Canvas `yaml:"landscape"`
	Portrait  types.Canvas `yaml:"portrait"`
	Instagram types.Canvas `yaml:"instagram"`
}

type MotionConfig struct {
	MaxGap    float64              `yaml:"max_gap"`
	Pad       float64              `yaml:"pad"`
	MinClip   float64              `yaml:"min_clip"`
	MaxClip   float64              `yaml:"max_clip"`
	FillRatio float64              `yaml:"fill_ratio"`
	Targets   []usecase.ReelTarget `yaml:"targets"`
}

type ToolsConfig struct {
	FFmpeg          string `yaml:"ffmpeg"`
	FFprobe         string `yaml:"ffprobe"`
	WhisperBin      string `yaml:"whisper_bin"`
	WhisperModel    string `yaml:"whisper_model"`
	WhisperLanguage string `yaml:"whisper_language"`
	YtDlp           string `yaml:"yt_dlp"`
}

// Pack returns the motion selection parameters for a video of the given
// duration.
func (m MotionConfig) Pack(videoDuration float64) highlights.MotionPack {
	return highlights.MotionPack{
		MaxGap:        m.MaxGap,
		Pad:           m.Pad,
		MinClip:       m.MinClip,
		MaxClip:       m.MaxClip,
		FillRatio:     m.FillRatio,
		VideoDuration: videoDuration,
	}
}

func Default() *Config {
	mp := highlights.DefaultMotionPack(0)
	return &Config{
		OutDir:           "out",
		CacheDir:         ".cache",
		Clips:            5,
		MaxClip:          0,
		ShortsMaxClip:    15,
		FramesPerSegment: 3,
		BurnSubtitles:    true,
		Keywords:         append([]string(nil), highlights.DefaultKeywords...),
		Canvases: CanvasConfig{
			Landscape: types.Landscape,
			Portrait:  types.Portrait,
			Instagram: types.Instagram,
		},
		Motion: MotionConfig{
			MaxGap:    mp.MaxGap,
			Pad:       mp.Pad,
			MinClip:   mp.MinClip,
			MaxClip:   mp.MaxClip,
			FillRatio: mp.FillRatio,
			Targets:   append([]usecase.ReelTarget(nil), usecase.DefaultReelTargets...),
		},
		Platforms: append([]highlights.Platform(nil), highlights.AllPlatforms...),
		Tools: ToolsConfig{
			FFmpeg:          "ffmpeg",
			FFprobe:         "ffprobe",
			WhisperBin:      ".cache/bin/whisper.cpp",
			WhisperModel:    ".cache/models/ggml-base.bin",
			WhisperLanguage: "auto",
			YtDlp:           "yt-dlp",
		},
	}
}

// Load reads the config at path, or the first default location that exists,
// over the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = findConfigFile()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		case os.IsNotExist(err) && !explicit:
		default:
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

var envOverrides = []struct {
	key string
	dst func(*ToolsConfig) *string
}{
	{"REELCUT_FFMPEG", func(t *ToolsConfig) *string { return &t.FFmpeg }},
	{"REELCUT_FFPROBE", func(t *ToolsConfig) *string { return &t.FFprobe }},
	{"REELCUT_WHISPER_BIN", func(t *ToolsConfig) *string { return &t.WhisperBin }},
	{"REELCUT_WHISPER_MODEL", func(t *ToolsConfig) *string { return &t.WhisperModel }},
	{"REELCUT_WHISPER_LANGUAGE", func(t *ToolsConfig) *string { return &t.WhisperLanguage }},
	{"REELCUT_YTDLP", func(t *ToolsConfig) *string { return &t.YtDlp }},
}

func (c *Config) applyEnv() {
	for _, o := range envOverrides {
		if v := os.Getenv(o.key); v != "" {
			*o.dst(&c.Tools) = v
		}
	}
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func findConfigFile() string {
	candidates := []string{"./reelcut.yaml", "./reelcut.yml"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".reelcut", "config.yaml"))
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
