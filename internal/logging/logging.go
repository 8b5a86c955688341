package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// EnvLevel overrides the default level when no level is given explicitly.
const EnvLevel = "REELCUT_LOG_LEVEL"

// ParseLevel resolves level, falling back to $REELCUT_LOG_LEVEL and then info.
func ParseLevel(level string) (zerolog.Level, error) {
	if level == "" {
		level = os.Getenv(EnvLevel)
	}
	if level == "" {
		return zerolog.InfoLevel, nil
	}
	l, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zerolog.InfoLevel, fmt.Errorf("log level %q: %w", level, err)
	}
	return l, nil
}

// New builds the process logger. A nil w writes to stderr.
func New(level string, w io.Writer) (zerolog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), err
	}
	zerolog.TimeFieldFormat = time.RFC3339
	if w == nil {
		w = os.Stderr
	}
	out := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: "15:04:05",
		NoColor:    w != os.Stderr,
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger(), nil
}
