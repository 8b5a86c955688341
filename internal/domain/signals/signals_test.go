package signals

import (
	"context"
	"errors"
	"image"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/rs/zerolog"

	"github.com/forPelevin/reelcut/internal/ports"
	"github.com/forPelevin/reelcut/internal/types"
)

func TestMotionCandidates_SingleRun(t *testing.T) {
	got := MotionCandidates([]float64{0, 0, 0, 9, 9, 9, 9, 0, 0}, 30, 3)
	if len(got) != 1 {
		t.Fatalf("expected 1 interval, got %d: %+v", len(got), got)
	}
	iv := got[0].Interval
	if math.Abs(iv.Start-0.1) > 1e-9 || math.Abs(iv.End-0.2) > 1e-9 {
		t.Fatalf("unexpected interval: %+v", iv)
	}
	if got[0].FrameMotionScore != 9 {
		t.Fatalf("unexpected motion score: %v", got[0].FrameMotionScore)
	}
}

func TestMotionCandidates_Edges(t *testing.T) {
	tests := []struct {
		name   string
		scores []float64
	}{
		{"empty", nil},
		{"flat", []float64{1, 1, 1, 1}},
		{"short run", []float64{0, 9, 9, 0, 0, 0}},
		{"open at end", []float64{0, 0, 0, 9, 9, 9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MotionCandidates(tt.scores, 30, 3); len(got) != 0 {
				t.Fatalf("expected no intervals, got %+v", got)
			}
		})
	}
}

func TestMotionThreshold(t *testing.T) {
	// mean 4, population std sqrt(20)
	got := MotionThreshold([]float64{0, 0, 0, 9, 9, 9, 9, 0, 0})
	want := 4 + 0.2*math.Sqrt(20)
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("threshold = %v, want %v", got, want)
	}
}

func TestRMS_CentredFrames(t *testing.T) {
	samples := make([]float64, 1024)
	for i := range samples {
		samples[i] = 1
	}
	got := RMS(samples, 4, 2)
	if len(got) != 513 {
		t.Fatalf("expected 513 frames, got %d", len(got))
	}
	if math.Abs(got[0]-math.Sqrt(0.5)) > 1e-9 {
		t.Fatalf("first frame should see half padding, got %v", got[0])
	}
	if got[1] != 1 {
		t.Fatalf("second frame = %v, want 1", got[1])
	}
}

func TestPickPeaks(t *testing.T) {
	x := []float64{0, 0.1, 1, 0.1, 0, 0, 0.9, 0}
	p := PeakParams{PreMax: 2, PostMax: 2, PreAvg: 2, PostAvg: 2, Delta: 0.05, Wait: 1}

	got := PickPeaks(x, p)
	if len(got) != 2 || got[0] != 2 || got[1] != 6 {
		t.Fatalf("unexpected peaks: %v", got)
	}

	p.Wait = 5
	got = PickPeaks(x, p)
	if len(got) != 1 || got[0] != 2 {
		t.Fatalf("wait should suppress the second peak, got %v", got)
	}
}

func TestAudioPeaks_Burst(t *testing.T) {
	const sr = 8000
	samples := make([]float64, 3*sr)
	for i := sr; i < sr+800; i++ {
		samples[i] = 0.8 * math.Sin(float64(i)*0.3)
	}
	got := AudioPeaks(samples, sr, DefaultPeakParams)
	if len(got) != 1 {
		t.Fatalf("expected one peak, got %v", got)
	}
	if got[0] < 0.95 || got[0] > 1.15 {
		t.Fatalf("peak at %v, want near 1.0s", got[0])
	}
}

type fakeVideo struct {
	audioErr    error
	motionErr   error
	motion      []float64
	audioCalls  int
	motionCalls int
	lastWAV     string
	corruptWAV  bool
}

func (f *fakeVideo) Probe(context.Context, string) (types.VideoInfo, error) {
	return types.VideoInfo{}, nil
}
func (f *fakeVideo) ProbeDuration(context.Context, string) (float64, error) { return 0, nil }

func (f *fakeVideo) ExtractAudio(_ context.Context, _ string, out string, af ports.AudioFormat) error {
	f.audioCalls++
	f.lastWAV = out
	if f.audioErr != nil {
		return f.audioErr
	}
	if f.corruptWAV {
		return os.WriteFile(out, []byte("RIFF\x00\x00truncated"), 0o644)
	}
	sr := af.SampleRate
	if sr == 0 {
		sr = 8000
	}
	data := make([]int, 3*sr)
	for i := sr; i < sr+800; i++ {
		data[i] = int(20000 * math.Sin(float64(i)*0.3))
	}
	return writeWAV(out, sr, data)
}

func (f *fakeVideo) MotionScores(context.Context, string) ([]float64, error) {
	f.motionCalls++
	return f.motion, f.motionErr
}
func (f *fakeVideo) GrabFrame(context.Context, string, float64) (image.Image, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeVideo) RenderClip(context.Context, types.RenderJob) error { return nil }
func (f *fakeVideo) ConcatClips(context.Context, []string, types.Canvas, float64, string) error {
	return nil
}

type fakeScenes struct {
	ivs   []types.TimeInterval
	err   error
	calls int
}

func (f *fakeScenes) DetectScenes(context.Context, string) ([]types.TimeInterval, error) {
	f.calls++
	return f.ivs, f.err
}

type fakeASR struct {
	tr    types.Transcript
	err   error
	calls int
}

func (f *fakeASR) Transcribe(_ context.Context, wavPath, _ string) (types.Transcript, error) {
	f.calls++
	if _, err := os.Stat(wavPath); err != nil {
		return types.Transcript{}, err
	}
	return f.tr, f.err
}

func writeWAV(path string, sr int, data []int) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := wav.NewEncoder(out, sr, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sr},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		out.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected scratch dirs to be removed, found %d entries", len(entries))
	}
}

func TestExtractor_AudioPeaksCleansUp(t *testing.T) {
	work := t.TempDir()
	v := &fakeVideo{}
	e := NewExtractor(Deps{Video: v, Log: zerolog.Nop()}, "in.mp4", work)

	peaks := e.AudioPeaks(context.Background())
	if len(peaks) != 1 {
		t.Fatalf("expected one peak, got %v", peaks)
	}
	if _, err := os.Stat(v.lastWAV); !os.IsNotExist(err) {
		t.Fatalf("temp wav should be gone, stat err=%v", err)
	}
	assertEmptyDir(t, work)

	_ = e.AudioPeaks(context.Background())
	if v.audioCalls != 1 {
		t.Fatalf("peaks should be memoized, extract called %d times", v.audioCalls)
	}
}

func TestExtractor_AudioPeaksCorruptWAV(t *testing.T) {
	work := t.TempDir()
	v := &fakeVideo{corruptWAV: true}
	e := NewExtractor(Deps{Video: v, Log: zerolog.Nop()}, "in.mp4", work)

	if peaks := e.AudioPeaks(context.Background()); len(peaks) != 0 {
		t.Fatalf("unreadable wav should yield no peaks, got %v", peaks)
	}
	if v.audioCalls != 1 {
		t.Fatalf("expected one extraction, got %d", v.audioCalls)
	}
	if _, err := os.Stat(v.lastWAV); !os.IsNotExist(err) {
		t.Fatalf("corrupt wav should be removed, stat err=%v", err)
	}
	assertEmptyDir(t, work)
}

func TestExtractor_DegradesToEmpty(t *testing.T) {
	work := t.TempDir()
	v := &fakeVideo{audioErr: errors.New("no audio stream"), motionErr: errors.New("decode failed")}
	sc := &fakeScenes{err: errors.New("corrupt file")}
	asr := &fakeASR{}
	e := NewExtractor(Deps{Video: v, Scenes: sc, ASR: asr, Log: zerolog.Nop()}, "in.mp4", work)
	ctx := context.Background()

	if got := e.AudioPeaks(ctx); len(got) != 0 {
		t.Fatalf("expected no peaks, got %v", got)
	}
	if got := e.Scenes(ctx); len(got) != 0 {
		t.Fatalf("expected no scenes, got %v", got)
	}
	if got := e.Transcript(ctx); len(got.Segments) != 0 {
		t.Fatalf("expected empty transcript, got %+v", got)
	}
	if got := e.Motion(ctx); len(got) != 0 {
		t.Fatalf("expected no motion, got %v", got)
	}
	if asr.calls != 0 {
		t.Fatalf("asr should not run without audio")
	}
	assertEmptyDir(t, filepath.Clean(work))

	_ = e.Scenes(ctx)
	_ = e.Motion(ctx)
	if sc.calls != 1 || v.motionCalls != 1 {
		t.Fatalf("failed signals should not be retried: scenes=%d motion=%d", sc.calls, v.motionCalls)
	}
}

func TestExtractor_TranscriptAndScenes(t *testing.T) {
	work := t.TempDir()
	tr := types.Transcript{Segments: []types.Segment{{Start: 0, End: 2, Text: "hi"}}}
	sc := &fakeScenes{ivs: []types.TimeInterval{{Start: 0, End: 5}, {Start: 5, End: 9}}}
	asr := &fakeASR{tr: tr}
	v := &fakeVideo{motion: []float64{0, 0, 0, 9, 9, 9, 9, 0, 0}}
	e := NewExtractor(Deps{Video: v, Scenes: sc, ASR: asr, Log: zerolog.Nop()}, "in.mp4", work)
	ctx := context.Background()

	if got := e.Transcript(ctx); len(got.Segments) != 1 || got.Segments[0].Text != "hi" {
		t.Fatalf("unexpected transcript: %+v", got)
	}
	_ = e.Transcript(ctx)
	if asr.calls != 1 {
		t.Fatalf("transcript should be memoized, asr called %d times", asr.calls)
	}
	if got := e.Scenes(ctx); len(got) != 2 {
		t.Fatalf("unexpected scenes: %v", got)
	}
	if got := e.Motion(ctx); len(got) != 1 {
		t.Fatalf("unexpected motion: %v", got)
	}
	assertEmptyDir(t, work)
}
