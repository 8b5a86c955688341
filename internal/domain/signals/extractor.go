package signals

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/forPelevin/reelcut/internal/ports"
	"github.com/forPelevin/reelcut/internal/types"
)

// Extractor computes the per-video signals lazily. Each signal is computed
// at most once; a failing detector yields an empty signal and a warning.
type Extractor struct {
	source  string
	workDir string

	video  ports.VideoTool
	scenes ports.SceneDetector
	asr    ports.ASR
	log    zerolog.Logger

	peakParams PeakParams

	sceneDone  bool
	sceneVal   []types.TimeInterval
	peakDone   bool
	peakVal    []float64
	trDone     bool
	trVal      types.Transcript
	motionDone bool
	motionVal  []types.MotionInterval
}

type Deps struct {
	Video  ports.VideoTool
	Scenes ports.SceneDetector
	ASR    ports.ASR
	Log    zerolog.Logger
}

// NewExtractor binds an extractor to one source video. workDir holds
// scratch audio and the whisper cache; it must exist.
func NewExtractor(d Deps, source, workDir string) *Extractor {
	return &Extractor{
		source:     source,
		workDir:    workDir,
		video:      d.Video,
		scenes:     d.Scenes,
		asr:        d.ASR,
		log:        d.Log.With().Str("component", "signals").Logger(),
		peakParams: DefaultPeakParams,
	}
}

func (e *Extractor) Scenes(ctx context.Context) []types.TimeInterval {
	if e.sceneDone {
		return e.sceneVal
	}
	e.sceneDone = true
	if e.scenes == nil {
		return nil
	}
	ivs, err := e.scenes.DetectScenes(ctx, e.source)
	if err != nil {
		e.log.Warn().Err(err).Msg("scene detection unavailable")
		return nil
	}
	e.sceneVal = ivs
	e.log.Debug().Int("scenes", len(ivs)).Msg("scenes detected")
	return ivs
}

func (e *Extractor) AudioPeaks(ctx context.Context) []float64 {
	if e.peakDone {
		return e.peakVal
	}
	e.peakDone = true
	peaks, err := e.audioPeaks(ctx)
	if err != nil {
		e.log.Warn().Err(err).Msg("audio peaks unavailable")
		return nil
	}
	e.peakVal = peaks
	e.log.Debug().Int("peaks", len(peaks)).Msg("audio peaks detected")
	return peaks
}

func (e *Extractor) audioPeaks(ctx context.Context) ([]float64, error) {
	var peaks []float64
	err := e.withTempWAV(ctx, "peaks-*", ports.PeakAudio, func(wavPath string) error {
		samples, sr, err := ReadWAV(wavPath)
		if err != nil {
			return err
		}
		peaks = AudioPeaks(samples, sr, e.peakParams)
		return nil
	})
	return peaks, err
}

func (e *Extractor) Transcript(ctx context.Context) types.Transcript {
	if e.trDone {
		return e.trVal
	}
	e.trDone = true
	if e.asr == nil {
		return types.Transcript{}
	}
	var tr types.Transcript
	err := e.withTempWAV(ctx, "asr-*", ports.WhisperAudio, func(wavPath string) error {
		var err error
		tr, err = e.asr.Transcribe(ctx, wavPath, e.workDir)
		return err
	})
	if err != nil {
		e.log.Warn().Err(err).Msg("transcript unavailable")
		return types.Transcript{}
	}
	e.trVal = tr
	e.log.Debug().Int("segments", len(tr.Segments)).Msg("transcript ready")
	return tr
}

// withTempWAV extracts the source audio into a scratch directory that is
// removed when fn returns, whether or not anything failed.
func (e *Extractor) withTempWAV(ctx context.Context, pattern string, f ports.AudioFormat, fn func(string) error) error {
	dir, err := os.MkdirTemp(e.workDir, pattern)
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	wavPath := filepath.Join(dir, "audio.wav")
	if err := e.video.ExtractAudio(ctx, e.source, wavPath, f); err != nil {
		return err
	}
	return fn(wavPath)
}

// Motion returns the sustained-motion intervals of the source.
func (e *Extractor) Motion(ctx context.Context) []types.MotionInterval {
	if e.motionDone {
		return e.motionVal
	}
	e.motionDone = true
	scores, err := e.video.MotionScores(ctx, e.source)
	if err != nil {
		e.log.Warn().Err(err).Msg("motion scores unavailable")
		return nil
	}
	e.motionVal = MotionCandidates(scores, DefaultMotionFPS, DefaultMotionMinFrames)
	e.log.Debug().Int("frames", len(scores)).Int("runs", len(e.motionVal)).Msg("motion analysed")
	return e.motionVal
}
