package frames

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"golang.org/x/image/draw"

	"github.com/forPelevin/reelcut/internal/types"
)

const JPEGQuality = 95

// SampleTimes returns n instants evenly spaced strictly inside iv:
// start + d*(j+1)/(n+1) for j in [0, n).
func SampleTimes(iv types.TimeInterval, n int) []float64 {
	if n <= 0 || !iv.Valid() {
		return nil
	}
	d := iv.Duration()
	out := make([]float64, n)
	for j := range out {
		out[j] = iv.Start + d*float64(j+1)/float64(n+1)
	}
	return out
}

// FitCanvas scales img so it covers w×h and centre-crops to exactly w×h.
// The scaled size is clamped to at least w×h so rounding cannot leave the
// crop short.
func FitCanvas(img image.Image, w, h int) *image.RGBA {
	b := img.Bounds()
	sw, sh := b.Dx(), b.Dy()
	if sw == 0 || sh == 0 || w <= 0 || h <= 0 {
		return image.NewRGBA(image.Rect(0, 0, max(w, 0), max(h, 0)))
	}

	scale := max(float64(w)/float64(sw), float64(h)/float64(sh))
	nw := max(int(float64(sw)*scale+0.5), w)
	nh := max(int(float64(sh)*scale+0.5), h)

	scaled := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), img, b, draw.Src, nil)

	x0 := (nw - w) / 2
	y0 := (nh - h) / 2
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Copy(out, image.Point{}, scaled, image.Rect(x0, y0, x0+w, y0+h), draw.Src, nil)
	return out
}

type Grabber interface {
	GrabFrame(ctx context.Context, in string, at float64) (image.Image, error)
}

type Extractor struct {
	grab Grabber
	log  zerolog.Logger
}

func NewExtractor(g Grabber, log zerolog.Logger) *Extractor {
	return &Extractor{grab: g, log: log.With().Str("component", "frames").Logger()}
}

// Dir is the per-canvas frame directory under the job directory.
func Dir(c types.Canvas) string { return c.Name + "_frames" }

// Extract samples n frames from each interval and writes one JPEG per
// frame and canvas under outDir. Failures are logged and skipped. File
// paths in the result are relative to outDir.
func (e *Extractor) Extract(ctx context.Context, source string, ivs []types.TimeInterval, canvases []types.Canvas, n int, outDir string) []types.FrameEntry {
	var out []types.FrameEntry
	for _, c := range canvases {
		if err := os.MkdirAll(filepath.Join(outDir, Dir(c)), 0o755); err != nil {
			e.log.Error().Err(err).Str("canvas", c.Name).Msg("create frame dir")
		}
	}

	for i, iv := range ivs {
		if !iv.Valid() {
			e.log.Warn().Int("highlight", i+1).Msg("skipping frames for empty interval")
			continue
		}
		for j, at := range SampleTimes(iv, n) {
			if err := ctx.Err(); err != nil {
				return out
			}
			img, err := e.grab.GrabFrame(ctx, source, at)
			if err != nil {
				e.log.Error().Err(err).Int("highlight", i+1).Float64("time", at).Msg("grab frame")
				continue
			}
			for _, c := range canvases {
				rel := filepath.Join(Dir(c), fmt.Sprintf("highlight_%02d_frame_%02d.jpg", i+1, j+1))
				if err := writeJPEG(filepath.Join(outDir, rel), FitCanvas(img, c.Width, c.Height)); err != nil {
					e.log.Error().Err(err).Str("canvas", c.Name).Int("highlight", i+1).Msg("write frame")
					continue
				}
				out = append(out, types.FrameEntry{
					HighlightIndex: i + 1,
					FrameIndex:     j + 1,
					Format:         c.Name,
					Time:           at,
					File:           filepath.ToSlash(rel),
				})
			}
		}
	}
	e.log.Info().Int("frames", len(out)).Int("canvases", len(canvases)).Msg("frames extracted")
	return out
}

func writeJPEG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("encode jpeg: %w", err)
	}
	return f.Close()
}
