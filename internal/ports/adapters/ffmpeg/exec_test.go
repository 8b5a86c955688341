package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/forPelevin/reelcut/internal/types"
)

const (
	failNever  = "__never__"
	failAudio  = "-c:a"
	failAlways = "*"
)

const (
	infoNoAudio   = `{"streams":[{"codec_type":"video","width":1920,"height":1080,"avg_frame_rate":"30/1"}],"format":{"duration":"10.0"}}`
	infoWithAudio = `{"streams":[{"codec_type":"video","width":1920,"height":1080,"avg_frame_rate":"30/1"},{"codec_type":"audio"}],"format":{"duration":"10.0"}}`
)

// fakeTools writes stand-in ffmpeg and ffprobe scripts. ffprobe prints
// infoJSON; ffmpeg records its argv, exits 1 when an argument matches the
// shell pattern failOn and otherwise writes the .part output it was given.
func fakeTools(t *testing.T, infoJSON, failOn string) (*Adapter, string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake tools are shell scripts")
	}
	dir := t.TempDir()
	logPath := filepath.Join(dir, "argv.log")

	ffprobe := filepath.Join(dir, "ffprobe")
	writeScript(t, ffprobe, fmt.Sprintf("#!/bin/sh\ncat <<'EOF'\n%s\nEOF\n", infoJSON))

	ffmpegBin := filepath.Join(dir, "ffmpeg")
	writeScript(t, ffmpegBin, fmt.Sprintf(`#!/bin/sh
printf '%%s\n' "$@" >> '%[1]s'
echo '--' >> '%[1]s'
for a in "$@"; do
	case "$a" in
	%[2]s) echo "encoder error" >&2; exit 1;;
	esac
done
for a in "$@"; do
	case "$a" in
	*.part) echo fake > "$a";;
	esac
done
`, logPath, failOn))

	return New(ffmpegBin, ffprobe, zerolog.Nop()), logPath
}

func writeScript(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatal(err)
	}
}

// invocations returns the argv of every ffmpeg call in order.
func invocations(t *testing.T, logPath string) [][]string {
	t.Helper()
	b, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	var calls [][]string
	var cur []string
	for _, line := range strings.Split(strings.TrimSuffix(string(b), "\n"), "\n") {
		if line == "--" {
			calls = append(calls, cur)
			cur = nil
			continue
		}
		cur = append(cur, line)
	}
	return calls
}

func assertOnlyOutput(t *testing.T, dir, out string) {
	t.Helper()
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("expected output %s: %v", out, err)
	}
	assertNoLeftovers(t, dir)
}

func assertNoLeftovers(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), partSuffix) || strings.HasPrefix(e.Name(), ".concat-") {
			t.Fatalf("leftover %s in %s", e.Name(), dir)
		}
	}
}

func assertSilentThenMuted(t *testing.T, calls [][]string) {
	t.Helper()
	if len(calls) != 2 {
		t.Fatalf("expected 2 ffmpeg runs, got %d: %q", len(calls), calls)
	}
	first, second := calls[0], calls[1]
	if !slices.Contains(first, silentAudio) || !slices.Contains(first, "-shortest") {
		t.Fatalf("first attempt should mux generated silence: %q", first)
	}
	if !slices.Contains(second, "-an") {
		t.Fatalf("retry should drop audio: %q", second)
	}
	if slices.Contains(second, "-c:a") || slices.Contains(second, silentAudio) {
		t.Fatalf("retry still encodes audio: %q", second)
	}
}

func renderJob(out string) types.RenderJob {
	return types.RenderJob{
		Source:   "in.mp4",
		Interval: types.TimeInterval{Start: 1, End: 4},
		Canvas:   types.Portrait,
		Output:   out,
	}
}

func TestRenderClip_SilentSourceRetriesWithoutAudio(t *testing.T) {
	a, logPath := fakeTools(t, infoNoAudio, failAudio)
	dir := t.TempDir()
	out := filepath.Join(dir, "highlight_1.mp4")

	if err := a.RenderClip(context.Background(), renderJob(out)); err != nil {
		t.Fatalf("render: %v", err)
	}
	assertSilentThenMuted(t, invocations(t, logPath))
	assertOnlyOutput(t, dir, out)
}

func TestRenderClip_SourceAudioSingleAttempt(t *testing.T) {
	a, logPath := fakeTools(t, infoWithAudio, failNever)
	dir := t.TempDir()
	out := filepath.Join(dir, "highlight_1.mp4")

	if err := a.RenderClip(context.Background(), renderJob(out)); err != nil {
		t.Fatalf("render: %v", err)
	}
	calls := invocations(t, logPath)
	if len(calls) != 1 {
		t.Fatalf("expected one ffmpeg run, got %d", len(calls))
	}
	if !hasPair(calls[0], "-c:a", "aac") || !hasPair(calls[0], "-b:a", "192k") || slices.Contains(calls[0], silentAudio) {
		t.Fatalf("source audio should be re-encoded as is: %q", calls[0])
	}
	assertOnlyOutput(t, dir, out)
}

func TestRenderClip_BothAttemptsFail(t *testing.T) {
	a, logPath := fakeTools(t, infoNoAudio, failAlways)
	dir := t.TempDir()
	out := filepath.Join(dir, "highlight_1.mp4")

	err := a.RenderClip(context.Background(), renderJob(out))
	if err == nil {
		t.Fatal("expected error when every attempt fails")
	}
	if !strings.Contains(err.Error(), "encoder error") {
		t.Fatalf("error should carry ffmpeg output: %v", err)
	}
	if n := len(invocations(t, logPath)); n != 2 {
		t.Fatalf("expected 2 ffmpeg runs, got %d", n)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Fatalf("failed render left output behind, stat err=%v", err)
	}
	assertNoLeftovers(t, dir)
}

func TestRenderClip_CancelledSkipsRetry(t *testing.T) {
	a, logPath := fakeTools(t, infoNoAudio, failAlways)
	out := filepath.Join(t.TempDir(), "highlight_1.mp4")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := a.RenderClip(ctx, renderJob(out)); err == nil {
		t.Fatal("expected error on cancelled context")
	}
	if _, err := os.Stat(logPath); err == nil && len(invocations(t, logPath)) > 1 {
		t.Fatal("cancelled render should not retry")
	}
}

func TestConcatClips_SilentPartsRetryWithoutAudio(t *testing.T) {
	a, logPath := fakeTools(t, infoNoAudio, failAudio)
	dir := t.TempDir()
	parts := []string{filepath.Join(dir, "a.mp4"), filepath.Join(dir, "b.mp4")}
	for _, p := range parts {
		if err := os.WriteFile(p, []byte("clip"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	out := filepath.Join(dir, "reel_1.mp4")

	if err := a.ConcatClips(context.Background(), parts, types.Portrait, 15, out); err != nil {
		t.Fatalf("concat: %v", err)
	}
	calls := invocations(t, logPath)
	assertSilentThenMuted(t, calls)
	if !hasPair(calls[1], "-t", fmtSeconds(15)) {
		t.Fatalf("retry lost the duration cap: %q", calls[1])
	}
	assertOnlyOutput(t, dir, out)
}

func TestConcatClips_BothAttemptsFail(t *testing.T) {
	a, _ := fakeTools(t, infoWithAudio, failAlways)
	dir := t.TempDir()
	out := filepath.Join(dir, "reel_1.mp4")

	if err := a.ConcatClips(context.Background(), []string{filepath.Join(dir, "a.mp4")}, types.Landscape, 0, out); err == nil {
		t.Fatal("expected concat error")
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Fatalf("failed concat left output behind, stat err=%v", err)
	}
	assertNoLeftovers(t, dir)
}
