package ports

import (
	"context"
	"image"

	"github.com/forPelevin/reelcut/internal/types"
)

// AudioFormat selects the decoded WAV layout. Zero SampleRate keeps the
// source rate.
type AudioFormat struct {
	SampleRate int
	Channels   int
}

var (
	WhisperAudio = AudioFormat{SampleRate: 16000, Channels: 1}
	PeakAudio    = AudioFormat{Channels: 1}
)

type VideoTool interface {
	Probe(ctx context.Context, in string) (types.VideoInfo, error)
	ProbeDuration(ctx context.Context, in string) (float64, error)
	ExtractAudio(ctx context.Context, in, outWav string, f AudioFormat) error
	MotionScores(ctx context.Context, in string) ([]float64, error)
	GrabFrame(ctx context.Context, in string, at float64) (image.Image, error)
	RenderClip(ctx context.Context, job types.RenderJob) error
	ConcatClips(ctx context.Context, parts []string, canvas types.Canvas, maxDuration float64, out string) error
}

type SceneDetector interface {
	DetectScenes(ctx context.Context, in string) ([]types.TimeInterval, error)
}

type ASR interface {
	Transcribe(ctx context.Context, wavPath, cacheDir string) (types.Transcript, error)
}

type Downloader interface {
	Download(ctx context.Context, url, outDir string) (string, error)
}
