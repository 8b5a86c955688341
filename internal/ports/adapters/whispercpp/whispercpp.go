package whispercpp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/forPelevin/reelcut/internal/types"
)

type Adapter struct {
	bin      string
	model    string
	language string
	log      zerolog.Logger
}

func New(binPath, modelPath, language string, log zerolog.Logger) *Adapter {
	if language == "" {
		language = "auto"
	}
	return &Adapter{
		bin:      binPath,
		model:    modelPath,
		language: language,
		log:      log.With().Str("component", "whisper").Logger(),
	}
}

func (a *Adapter) Transcribe(ctx context.Context, wavPath, cacheDir string) (types.Transcript, error) {
	outPrefix := filepath.Join(cacheDir, "whisper")
	args := []string{
		"-m", a.model,
		"-f", wavPath,
		"-l", a.language,
		"-oj",
		"-of", outPrefix,
		"-ml", "0",
	}
	a.log.Debug().Strs("args", args).Msg("exec")
	cmd := exec.CommandContext(ctx, a.bin, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return types.Transcript{}, fmt.Errorf("whisper.cpp failed: %w\n%s", err, string(b))
	}

	jb, err := os.ReadFile(outPrefix + ".json")
	if err != nil {
		return types.Transcript{}, err
	}
	tr, err := parseTranscript(jb)
	if err != nil {
		return types.Transcript{}, err
	}
	a.log.Info().Int("segments", len(tr.Segments)).Msg("transcribed")
	return tr, nil
}

type whisperJSON struct {
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
	Segments []types.Segment `json:"segments"`
}

// parseTranscript accepts whisper.cpp's -oj output (millisecond offsets)
// and the plain {segments: [{start, end, text}]} layout.
func parseTranscript(b []byte) (types.Transcript, error) {
	var w whisperJSON
	if err := json.Unmarshal(b, &w); err != nil {
		return types.Transcript{}, fmt.Errorf("parse whisper output: %w", err)
	}

	var tr types.Transcript
	if len(w.Transcription) > 0 {
		for _, s := range w.Transcription {
			tr.Segments = append(tr.Segments, types.Segment{
				Start: float64(s.Offsets.From) / 1000,
				End:   float64(s.Offsets.To) / 1000,
				Text:  s.Text,
			})
		}
	} else {
		tr.Segments = w.Segments
	}

	out := tr.Segments[:0]
	for _, s := range tr.Segments {
		s.Text = strings.TrimSpace(s.Text)
		for j := range s.Words {
			s.Words[j].Word = strings.TrimSpace(s.Words[j].Word)
		}
		if s.End <= s.Start {
			continue
		}
		out = append(out, s)
	}
	tr.Segments = out
	return tr, nil
}
