package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/forPelevin/reelcut/internal/domain/subtitles"
	"github.com/forPelevin/reelcut/internal/types"
)

const (
	silentAudio  = "anullsrc=channel_layout=stereo:sample_rate=44100"
	evenPad      = "pad=ceil(iw/2)*2:ceil(ih/2)*2"
	defaultFPS   = 30.0
	partSuffix   = ".part"
	encodePreset = "veryfast"
	encodeCRF    = 20
)

type audioMode int

const (
	audioSource audioMode = iota
	audioSilent
	audioNone
)

// CropToAspect returns the centred crop window of a srcW×srcH frame that
// matches the canvas aspect. Width and height are rounded up to even
// numbers without exceeding the source.
func CropToAspect(srcW, srcH int, c types.Canvas) (w, h, x, y int) {
	w, h = srcW, srcH
	target := c.Aspect()
	src := float64(srcW) / float64(srcH)
	switch {
	case src > target:
		w = evenUp(int(float64(srcH)*target), srcW)
		h = evenUp(srcH, srcH)
	case src < target:
		w = evenUp(srcW, srcW)
		h = evenUp(int(float64(srcW)/target), srcH)
	default:
		w, h = evenUp(srcW, srcW), evenUp(srcH, srcH)
	}
	return w, h, (srcW - w) / 2, (srcH - h) / 2
}

func evenUp(v, limit int) int {
	if v%2 != 0 {
		v++
	}
	if v > limit {
		v -= 2
	}
	return v
}

// videoFilter crops to the canvas aspect and scales to the canvas size.
func videoFilter(info types.VideoInfo, c types.Canvas) string {
	w, h, x, y := CropToAspect(info.Width, info.Height, c)
	return fmt.Sprintf("crop=%d:%d:%d:%d,scale=%d:%d,setsar=1", w, h, x, y, c.Width, c.Height)
}

func encodeArgs(mode audioMode) ffmpeg.KwArgs {
	kw := ffmpeg.KwArgs{
		"c:v":      "libx264",
		"preset":   encodePreset,
		"crf":      encodeCRF,
		"pix_fmt":  "yuv420p",
		"movflags": "+faststart",
		"f":        "mp4",
	}
	switch mode {
	case audioNone:
		kw["an"] = ""
	case audioSilent:
		kw["c:a"] = "aac"
		kw["shortest"] = ""
	default:
		kw["c:a"] = "aac"
		kw["b:a"] = "192k"
	}
	return kw
}

func clipInput(j types.RenderJob) *ffmpeg.Stream {
	return ffmpeg.Input(j.Source, ffmpeg.KwArgs{
		"ss": fmtSeconds(j.Interval.Start),
		"t":  fmtSeconds(j.Interval.Duration()),
	})
}

// directArgs renders a clip with a single ffmpeg invocation.
func directArgs(j types.RenderJob, info types.VideoInfo, mode audioMode, out string) []string {
	kw := encodeArgs(mode)
	kw["vf"] = videoFilter(info, j.Canvas) + "," + evenPad
	in := clipInput(j)

	if mode == audioSilent {
		silent := ffmpeg.Input(silentAudio, ffmpeg.KwArgs{"f": "lavfi"})
		return ffmpeg.Output([]*ffmpeg.Stream{in.Video(), silent.Audio()}, out, kw).OverWriteOutput().GetArgs()
	}
	return in.Output(out, kw).OverWriteOutput().GetArgs()
}

// decodeArgs emits cropped, scaled RGBA frames at a constant rate on stdout.
func decodeArgs(j types.RenderJob, info types.VideoInfo, fps float64) []string {
	return clipInput(j).Output("pipe:", ffmpeg.KwArgs{
		"vf":      videoFilter(info, j.Canvas),
		"an":      "",
		"r":       fps,
		"f":       "rawvideo",
		"pix_fmt": "rgba",
	}).GetArgs()
}

// overlayEncodeArgs reads RGBA frames from stdin and muxes them with the
// clip's audio, silence, or nothing.
func overlayEncodeArgs(j types.RenderJob, fps float64, mode audioMode, out string) []string {
	raw := ffmpeg.Input("pipe:", ffmpeg.KwArgs{
		"f":       "rawvideo",
		"pix_fmt": "rgba",
		"s":       fmt.Sprintf("%dx%d", j.Canvas.Width, j.Canvas.Height),
		"r":       fps,
	})
	kw := encodeArgs(mode)
	kw["vf"] = evenPad

	switch mode {
	case audioSource:
		return ffmpeg.Output([]*ffmpeg.Stream{raw.Video(), clipInput(j).Audio()}, out, kw).OverWriteOutput().GetArgs()
	case audioSilent:
		silent := ffmpeg.Input(silentAudio, ffmpeg.KwArgs{"f": "lavfi"})
		return ffmpeg.Output([]*ffmpeg.Stream{raw.Video(), silent.Audio()}, out, kw).OverWriteOutput().GetArgs()
	default:
		return raw.Output(out, kw).OverWriteOutput().GetArgs()
	}
}

// RenderClip cuts, crops and encodes one highlight. The first attempt keeps
// audio (or synthesises silence); a failed attempt is retried once without
// audio. The output only appears once encoding succeeded.
func (a *Adapter) RenderClip(ctx context.Context, j types.RenderJob) error {
	if !j.Interval.Valid() {
		return fmt.Errorf("render %s: invalid interval %+v", j.Output, j.Interval)
	}
	info, err := a.Probe(ctx, j.Source)
	if err != nil {
		return fmt.Errorf("render %s: %w", j.Output, err)
	}

	mode := audioSource
	if !info.HasAudio {
		mode = audioSilent
	}
	err = a.renderOnce(ctx, j, info, mode)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return err
	}
	a.log.Warn().Err(err).Str("output", j.Output).Msg("render failed, retrying without audio")
	if err := a.renderOnce(ctx, j, info, audioNone); err != nil {
		return fmt.Errorf("render %s without audio: %w", j.Output, err)
	}
	return nil
}

func (a *Adapter) renderOnce(ctx context.Context, j types.RenderJob, info types.VideoInfo, mode audioMode) error {
	part := j.Output + partSuffix
	defer os.Remove(part)

	var err error
	if len(j.Subtitles) == 0 {
		err = a.run(ctx, "render clip", directArgs(j, info, mode, part))
	} else {
		err = a.renderWithOverlay(ctx, j, info, mode, part)
	}
	if err != nil {
		return err
	}
	return os.Rename(part, j.Output)
}

// renderWithOverlay pipes decoded frames through the subtitle overlay and
// into a second ffmpeg process for encoding.
func (a *Adapter) renderWithOverlay(ctx context.Context, j types.RenderJob, info types.VideoInfo, mode audioMode, out string) error {
	fps := info.FPS
	if fps <= 0 {
		fps = defaultFPS
	}
	ov, err := subtitles.NewOverlay(a.style)
	if err != nil {
		return err
	}
	defer ov.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var decErr, encErr bytes.Buffer
	dec := exec.CommandContext(ctx, a.ffmpeg, decodeArgs(j, info, fps)...)
	dec.Stderr = &decErr
	frames, err := dec.StdoutPipe()
	if err != nil {
		return err
	}
	enc := exec.CommandContext(ctx, a.ffmpeg, overlayEncodeArgs(j, fps, mode, out)...)
	enc.Stdout = &encErr
	enc.Stderr = &encErr
	sink, err := enc.StdinPipe()
	if err != nil {
		return err
	}

	a.log.Debug().Strs("decode", dec.Args).Strs("encode", enc.Args).Msg("exec overlay render")
	if err := enc.Start(); err != nil {
		return fmt.Errorf("start encoder: %w", err)
	}
	if err := dec.Start(); err != nil {
		sink.Close()
		_ = enc.Wait()
		return fmt.Errorf("start decoder: %w", err)
	}

	loopErr := overlayLoop(frames, sink, j.Canvas, fps, func(frame *image.RGBA, t float64) {
		ov.Apply(frame, t, j.Subtitles)
	})
	sink.Close()
	if loopErr != nil {
		cancel()
	}
	_, _ = io.Copy(io.Discard, frames)
	decWait := dec.Wait()
	encWait := enc.Wait()

	switch {
	case loopErr != nil:
		return fmt.Errorf("ffmpeg overlay: %w\n%s", loopErr, encErr.String())
	case decWait != nil:
		return fmt.Errorf("ffmpeg decode clip: %w\n%s", decWait, decErr.String())
	case encWait != nil:
		return fmt.Errorf("ffmpeg encode clip: %w\n%s", encWait, encErr.String())
	}
	return nil
}

// overlayLoop reads whole RGBA frames from r, applies fn with the frame's
// clip time and writes the result to w. A trailing partial frame is dropped.
func overlayLoop(r io.Reader, w io.Writer, c types.Canvas, fps float64, fn func(*image.RGBA, float64)) error {
	frame := image.NewRGBA(image.Rect(0, 0, c.Width, c.Height))
	n := 0
	for ; ; n++ {
		if _, err := io.ReadFull(r, frame.Pix); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return fmt.Errorf("read frame %d: %w", n, err)
		}
		fn(frame, float64(n)/fps)
		if _, err := w.Write(frame.Pix); err != nil {
			return fmt.Errorf("write frame %d: %w", n, err)
		}
	}
	if n == 0 {
		return errors.New("decoder produced no frames")
	}
	return nil
}
