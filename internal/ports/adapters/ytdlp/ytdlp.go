package ytdlp

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	preferredFormat = "best[ext=mp4]/best"
	fallbackFormat  = "best"
)

type Adapter struct {
	bin string
	log zerolog.Logger
}

func New(binPath string, log zerolog.Logger) *Adapter {
	if binPath == "" {
		binPath = "yt-dlp"
	}
	return &Adapter{bin: binPath, log: log.With().Str("component", "yt-dlp").Logger()}
}

// IsURL reports whether input should be downloaded rather than opened.
func IsURL(input string) bool {
	u, err := url.Parse(input)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Download fetches a single video into outDir and returns its path.
func (a *Adapter) Download(ctx context.Context, rawURL, outDir string) (string, error) {
	if !IsURL(rawURL) {
		return "", fmt.Errorf("not an http(s) url: %q", rawURL)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", err
	}
	id := uuid.NewString()

	path, err := a.fetch(ctx, rawURL, outDir, id, preferredFormat)
	if err != nil && ctx.Err() == nil {
		a.log.Warn().Err(err).Msg("download failed, retrying with any format")
		path, err = a.fetch(ctx, rawURL, outDir, id, fallbackFormat)
	}
	if err != nil {
		return "", err
	}
	a.log.Info().Str("path", path).Msg("downloaded")
	return path, nil
}

func (a *Adapter) fetch(ctx context.Context, rawURL, outDir, id, format string) (string, error) {
	args := []string{
		"-f", format,
		"--no-playlist",
		"--no-warnings",
		"--quiet",
		"-o", filepath.Join(outDir, id+".%(ext)s"),
		"--print", "after_move:filepath",
		rawURL,
	}
	a.log.Debug().Strs("args", args).Msg("exec")
	cmd := exec.CommandContext(ctx, a.bin, args...)
	b, err := cmd.Output()
	if err != nil {
		var stderr string
		if ee, ok := err.(*exec.ExitError); ok {
			stderr = string(ee.Stderr)
		}
		return "", fmt.Errorf("yt-dlp: %w\n%s", err, stderr)
	}
	return resolvePath(string(b), outDir, id)
}

// resolvePath prefers the path yt-dlp printed and falls back to the file
// named after the download id.
func resolvePath(printed, outDir, id string) (string, error) {
	lines := strings.Split(strings.TrimSpace(printed), "\n")
	if p := strings.TrimSpace(lines[len(lines)-1]); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	matches, _ := filepath.Glob(filepath.Join(outDir, id+".*"))
	for _, m := range matches {
		if !strings.HasSuffix(m, ".part") {
			return m, nil
		}
	}
	return "", fmt.Errorf("yt-dlp: downloaded file for %s not found in %s", id, outDir)
}
