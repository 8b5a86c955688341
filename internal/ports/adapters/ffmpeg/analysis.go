package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"os/exec"
	"regexp"
	"sort"
	"strconv"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/forPelevin/reelcut/internal/types"
)

const (
	SceneThreshold = 0.4

	motionFPS    = 30
	motionWidth  = 320
	motionHeight = 180
	motionSigma  = 3.5
)

var ptsTimeRe = regexp.MustCompile(`pts_time:\s*([0-9.]+)`)

// DetectScenes returns the shots between detected cuts as consecutive
// intervals covering the whole video. A video without cuts yields none.
func (a *Adapter) DetectScenes(ctx context.Context, in string) ([]types.TimeInterval, error) {
	dur, err := a.ProbeDuration(ctx, in)
	if err != nil {
		return nil, err
	}
	args := ffmpeg.Input(in).Output("-", ffmpeg.KwArgs{
		"filter:v": fmt.Sprintf("select='gt(scene,%.2f)',showinfo", SceneThreshold),
		"an":       "",
		"f":        "null",
	}).GetArgs()
	a.log.Debug().Strs("args", args).Msg("exec scene detection")

	b, err := exec.CommandContext(ctx, a.ffmpeg, args...).CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg detect scenes: %w\n%s", err, string(b))
	}
	return scenesFromCuts(parseCuts(b), dur), nil
}

func parseCuts(out []byte) []float64 {
	var cuts []float64
	sc := bufio.NewScanner(bytes.NewReader(out))
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if !strings.Contains(line, "Parsed_showinfo") {
			continue
		}
		m := ptsTimeRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if t, err := strconv.ParseFloat(m[1], 64); err == nil {
			cuts = append(cuts, t)
		}
	}
	sort.Float64s(cuts)
	return cuts
}

func scenesFromCuts(cuts []float64, duration float64) []types.TimeInterval {
	var out []types.TimeInterval
	prev := 0.0
	for _, c := range cuts {
		if c <= prev || (duration > 0 && c >= duration) {
			continue
		}
		out = append(out, types.TimeInterval{Start: prev, End: c})
		prev = c
	}
	if len(out) == 0 {
		return nil
	}
	end := duration
	if end <= prev {
		end = prev
	}
	if end > prev {
		out = append(out, types.TimeInterval{Start: prev, End: end})
	}
	return out
}

// MotionScores decodes the video as blurred grayscale frames at a fixed
// rate and returns sum(|frame - previous|)/255 for every frame after the
// first.
func (a *Adapter) MotionScores(ctx context.Context, in string) ([]float64, error) {
	args := ffmpeg.Input(in).Output("pipe:", ffmpeg.KwArgs{
		"vf":      fmt.Sprintf("fps=%d,scale=%d:%d,format=gray,gblur=sigma=%.1f", motionFPS, motionWidth, motionHeight, motionSigma),
		"an":      "",
		"f":       "rawvideo",
		"pix_fmt": "gray",
	}).GetArgs()
	a.log.Debug().Strs("args", args).Msg("exec motion analysis")

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, a.ffmpeg, args...)
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}
	scores, readErr := frameDiffs(stdout, motionWidth*motionHeight)
	_, _ = io.Copy(io.Discard, stdout)
	if err := cmd.Wait(); err != nil {
		return nil, fmt.Errorf("ffmpeg motion scores: %w\n%s", err, stderr.String())
	}
	if readErr != nil {
		return nil, readErr
	}
	return scores, nil
}

func frameDiffs(r io.Reader, frameSize int) ([]float64, error) {
	prev := make([]byte, frameSize)
	cur := make([]byte, frameSize)
	if _, err := io.ReadFull(r, prev); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("read first frame: %w", err)
	}
	var scores []float64
	for {
		if _, err := io.ReadFull(r, cur); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return scores, nil
			}
			return scores, fmt.Errorf("read frame: %w", err)
		}
		sum := 0
		for i := range cur {
			d := int(cur[i]) - int(prev[i])
			if d < 0 {
				d = -d
			}
			sum += d
		}
		scores = append(scores, float64(sum)/255)
		prev, cur = cur, prev
	}
}

// GrabFrame decodes the single frame shown at the given time.
func (a *Adapter) GrabFrame(ctx context.Context, in string, at float64) (image.Image, error) {
	args := ffmpeg.Input(in, ffmpeg.KwArgs{"ss": fmtSeconds(at)}).Output("pipe:", ffmpeg.KwArgs{
		"frames:v": 1,
		"f":        "image2pipe",
		"c:v":      "png",
	}).GetArgs()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, a.ffmpeg, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg grab frame at %s: %w\n%s", fmtSeconds(at), err, stderr.String())
	}
	img, err := png.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("decode frame at %s: %w", fmtSeconds(at), err)
	}
	return img, nil
}
