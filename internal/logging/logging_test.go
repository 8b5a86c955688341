package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name  string
		level string
		env   string
		want  zerolog.Level
	}{
		{"default", "", "", zerolog.InfoLevel},
		{"explicit", "debug", "", zerolog.DebugLevel},
		{"env", "", "warn", zerolog.WarnLevel},
		{"flag wins", "error", "debug", zerolog.ErrorLevel},
		{"case", " DEBUG ", "", zerolog.DebugLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvLevel, tt.env)
			got, err := ParseLevel(tt.level)
			if err != nil {
				t.Fatalf("ParseLevel: %v", err)
			}
			if got != tt.want {
				t.Fatalf("level = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseLevel_Invalid(t *testing.T) {
	t.Setenv(EnvLevel, "")
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestNew_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	log, err := New("warn", &buf)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log = log.With().Str("component", "ffmpeg").Logger()
	log.Info().Msg("hidden")
	log.Warn().Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info message should be filtered: %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "component=ffmpeg") {
		t.Fatalf("unexpected output: %q", out)
	}
}
