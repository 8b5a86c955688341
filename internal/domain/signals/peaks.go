package signals

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// PeakParams configures RMS framing and peak picking.
type PeakParams struct {
	FrameLength int
	HopLength   int
	PreMax      int
	PostMax     int
	PreAvg      int
	PostAvg     int
	Delta       float64
	Wait        int
}

var DefaultPeakParams = PeakParams{
	FrameLength: 2048,
	HopLength:   512,
	PreMax:      50,
	PostMax:     50,
	PreAvg:      50,
	PostAvg:     50,
	Delta:       0.05,
	Wait:        10,
}

// AudioPeaks returns the times, in seconds rounded to centiseconds, of local
// energy peaks in mono samples normalised to [-1, 1].
func AudioPeaks(samples []float64, sampleRate int, p PeakParams) []float64 {
	if len(samples) == 0 || sampleRate <= 0 {
		return nil
	}
	energy := RMS(samples, p.FrameLength, p.HopLength)
	idx := PickPeaks(energy, p)
	out := make([]float64, 0, len(idx))
	for _, i := range idx {
		sec := float64(i*p.HopLength) / float64(sampleRate)
		out = append(out, math.Round(sec*100)/100)
	}
	return out
}

// RMS computes root-mean-square energy over centred, zero-padded frames.
// The frame count is 1 + len(samples)/hop.
func RMS(samples []float64, frameLen, hop int) []float64 {
	if frameLen <= 0 || hop <= 0 {
		return nil
	}
	n := 1 + len(samples)/hop
	out := make([]float64, n)
	half := frameLen / 2
	for f := 0; f < n; f++ {
		start := f*hop - half
		sum := 0.0
		for k := start; k < start+frameLen; k++ {
			if k < 0 || k >= len(samples) {
				continue
			}
			sum += samples[k] * samples[k]
		}
		out[f] = math.Sqrt(sum / float64(frameLen))
	}
	return out
}

// PickPeaks returns indices n where x[n] is the maximum of
// x[n-PreMax : n+PostMax], at least Delta above the mean of
// x[n-PreAvg : n+PostAvg], and more than Wait samples after the previous peak.
func PickPeaks(x []float64, p PeakParams) []int {
	var peaks []int
	last := -1 << 31
	for n := range x {
		if x[n] <= 0 {
			continue
		}
		lo, hi := clampWindow(n, p.PreMax, p.PostMax, len(x))
		isMax := true
		for k := lo; k < hi; k++ {
			if x[k] > x[n] {
				isMax = false
				break
			}
		}
		if !isMax {
			continue
		}
		lo, hi = clampWindow(n, p.PreAvg, p.PostAvg, len(x))
		sum := 0.0
		for k := lo; k < hi; k++ {
			sum += x[k]
		}
		if x[n] < sum/float64(hi-lo)+p.Delta {
			continue
		}
		if n > last+p.Wait {
			peaks = append(peaks, n)
			last = n
		}
	}
	return peaks
}

func clampWindow(n, pre, post, size int) (int, int) {
	lo := n - pre
	if lo < 0 {
		lo = 0
	}
	hi := n + post
	if hi > size {
		hi = size
	}
	if hi <= n {
		hi = n + 1
	}
	return lo, hi
}

// ReadWAV decodes a PCM WAV file into mono samples in [-1, 1].
func ReadWAV(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, 0, errors.New("not a valid wav file")
	}
	var buf *audio.IntBuffer
	buf, err = d.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("decode wav: %w", err)
	}
	ch := int(d.NumChans)
	if ch <= 0 {
		ch = 1
	}
	depth := int(d.BitDepth)
	if depth <= 0 {
		depth = 16
	}
	scale := float64(int64(1) << (depth - 1))

	out := make([]float64, len(buf.Data)/ch)
	for i := range out {
		sum := 0
		for c := 0; c < ch; c++ {
			sum += buf.Data[i*ch+c]
		}
		out[i] = float64(sum) / float64(ch) / scale
	}
	return out, int(d.SampleRate), nil
}
