//go:build integration

package itest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const cliTimeout = 30 * time.Second

type robustCase struct {
	name            string
	args            func(t *testing.T) []string
	env             map[string]string
	wantContains    []string
	wantNotContains []string
}

type cliRunResult struct {
	exitCode int
	output   string
}

func TestRobustness_ArgsValidation(t *testing.T) {
	sample := filepath.Join(t.TempDir(), "sample.mp4")
	if err := os.WriteFile(sample, []byte("not really a video"), 0o644); err != nil {
		t.Fatalf("write sample: %v", err)
	}

	cases := []robustCase{
		{
			name: "no args",
			args: staticArgs("highlights"),
			wantContains: []string{
				"accepts 1 arg(s), received 0",
			},
		},
		{
			name: "too many args",
			args: staticArgs("motion", sample, "extra"),
			wantContains: []string{
				"accepts 1 arg(s), received 2",
			},
		},
		{
			name: "unknown command",
			args: staticArgs("poster", sample),
			wantContains: []string{
				`unknown command "poster"`,
			},
		},
		{
			name: "unknown flag",
			args: staticArgs("highlights", sample, "--wat"),
			wantContains: []string{
				"unknown flag: --wat",
			},
		},
		{
			name: "clips non int",
			args: staticArgs("highlights", sample, "--clips", "nope"),
			wantContains: []string{
				`invalid argument "nope" for "--clips"`,
			},
		},
		{
			name: "clips zero",
			args: staticArgs("highlights", sample, "--clips", "0"),
			wantContains: []string{
				"config: clips must be > 0",
			},
		},
		{
			name: "merge is highlights only",
			args: staticArgs("motion", sample, "--merge"),
			wantContains: []string{
				"unknown flag: --merge",
			},
		},
		{
			name: "unknown platform",
			args: staticArgs("shorts", sample, "--platforms", "myspace"),
			wantContains: []string{
				`unknown platform "myspace"`,
			},
		},
		{
			name: "bad log level",
			args: staticArgs("motion", sample, "--log-level", "loud"),
			wantContains: []string{
				`log level "loud"`,
			},
		},
	}

	runRobustCases(t, cases)
}

func TestRobustness_InvalidInputMedia(t *testing.T) {
	tmp := t.TempDir()
	notMedia := filepath.Join(tmp, "not-media.txt")
	if err := os.WriteFile(notMedia, []byte("hello"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	badConfig := filepath.Join(tmp, "reelcut.yaml")
	if err := os.WriteFile(badConfig, []byte("clips: [oops"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	cases := []robustCase{
		{
			name: "missing input path",
			args: staticArgs("motion", filepath.Join(tmp, "does-not-exist.mp4")),
			wantContains: []string{
				"config: stat input:",
			},
		},
		{
			name: "input is directory",
			args: staticArgs("motion", tmp),
			wantContains: []string{
				"probe source:",
			},
		},
		{
			name: "input is non media file",
			args: staticArgs("motion", notMedia),
			wantContains: []string{
				"probe source:",
			},
		},
		{
			name: "malformed config",
			args: staticArgs("motion", notMedia, "--config", badConfig),
			wantContains: []string{
				"parse " + badConfig,
			},
		},
		{
			name: "missing config",
			args: staticArgs("motion", notMedia, "--config", filepath.Join(tmp, "nope.yaml")),
			wantContains: []string{
				"read config:",
			},
		},
		{
			name: "out points to file",
			args: func(t *testing.T) []string {
				t.Helper()
				outFile := filepath.Join(t.TempDir(), "out-file")
				if err := os.WriteFile(outFile, []byte("x"), 0o644); err != nil {
					t.Fatalf("write out file fixture: %v", err)
				}
				return []string{"motion", notMedia, "--out", outFile}
			},
			wantContains: []string{
				"not a directory",
			},
		},
	}

	runRobustCases(t, cases)
}

func TestRobustness_NoMaterial(t *testing.T) {
	requireTools(t, "ffmpeg", "ffprobe")
	static := filepath.Join(t.TempDir(), "static.mp4")
	cmd := exec.Command("ffmpeg", "-y",
		"-f", "lavfi", "-i", "color=c=black:s=320x180:d=6:r=30",
		"-c:v", "libx264", "-pix_fmt", "yuv420p",
		static,
	)
	if b, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("ffmpeg fixture failed: %v\n%s", err, string(b))
	}

	cases := []robustCase{
		{
			name: "static video has no motion",
			args: func(t *testing.T) []string {
				return []string{"motion", static, "--out", t.TempDir()}
			},
			wantContains: []string{
				"nothing to cut",
				"insufficient material",
			},
		},
	}

	runRobustCases(t, cases)
}

func runRobustCases(t *testing.T, cases []robustCase) {
	t.Helper()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := runCLI(t, tc.args(t), tc.env)
			if res.exitCode == 0 {
				t.Fatalf("expected non-zero exit code, got 0\noutput:\n%s", res.output)
			}
			for _, want := range tc.wantContains {
				if !strings.Contains(res.output, want) {
					t.Fatalf("expected output to contain %q\noutput:\n%s", want, res.output)
				}
			}
			for _, notWant := range tc.wantNotContains {
				if strings.Contains(res.output, notWant) {
					t.Fatalf("expected output to not contain %q\noutput:\n%s", notWant, res.output)
				}
			}
		})
	}
}

// cliBinary is built once per test binary by TestMain.
var cliBinary string

func TestMain(m *testing.M) {
	os.Exit(runWithBinary(m))
}

func runWithBinary(m *testing.M) int {
	root, err := findRepoRoot()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	dir, err := os.MkdirTemp("", "reelcut-itest-*")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer os.RemoveAll(dir)

	cliBinary = filepath.Join(dir, "reelcut")
	build := exec.Command("go", "build", "-o", cliBinary, "./cmd/reelcut")
	build.Dir = root
	if out, err := build.CombinedOutput(); err != nil {
		fmt.Fprintf(os.Stderr, "build cli: %v\n%s", err, out)
		return 1
	}
	return m.Run()
}

func runCLI(t *testing.T, args []string, env map[string]string) cliRunResult {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), cliTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, cliBinary, args...)
	cmd.Dir = mustRepoRoot(t)
	// exec keeps the last value of a repeated key
	cmd.Env = append(os.Environ(), "NO_COLOR=1", "TERM=dumb")
	for k, v := range env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	out, err := cmd.CombinedOutput()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		t.Fatalf("command timed out after %s: reelcut %s", cliTimeout, strings.Join(args, " "))
	}

	res := cliRunResult{output: string(out)}
	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		res.exitCode = exitErr.ExitCode()
	default:
		t.Fatalf("run command: %v\noutput:\n%s", err, string(out))
	}
	return res
}

func staticArgs(args ...string) func(t *testing.T) []string {
	return func(*testing.T) []string {
		return append([]string(nil), args...)
	}
}
