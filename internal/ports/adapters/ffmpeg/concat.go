package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/forPelevin/reelcut/internal/types"
)

// fitFilter scales to fit inside the canvas and letterboxes the rest.
func fitFilter(c types.Canvas) string {
	return fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,setsar=1",
		c.Width, c.Height, c.Width, c.Height)
}

func concatList(parts []string) (string, error) {
	var b strings.Builder
	for _, p := range parts {
		abs, err := filepath.Abs(p)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "file '%s'\n", strings.ReplaceAll(abs, "'", `'\''`))
	}
	return b.String(), nil
}

func concatArgs(list string, c types.Canvas, maxDuration float64, mode audioMode, out string) []string {
	kw := encodeArgs(mode)
	kw["vf"] = fitFilter(c)
	if maxDuration > 0 {
		kw["t"] = fmtSeconds(maxDuration)
	}
	in := ffmpeg.Input(list, ffmpeg.KwArgs{"f": "concat", "safe": 0})
	if mode == audioSilent {
		silent := ffmpeg.Input(silentAudio, ffmpeg.KwArgs{"f": "lavfi"})
		return ffmpeg.Output([]*ffmpeg.Stream{in.Video(), silent.Audio()}, out, kw).OverWriteOutput().GetArgs()
	}
	return in.Output(out, kw).OverWriteOutput().GetArgs()
}

// ConcatClips joins parts in order into one video fitted to the canvas and
// cut at maxDuration seconds when positive. Like RenderClip it retries once
// without audio.
func (a *Adapter) ConcatClips(ctx context.Context, parts []string, c types.Canvas, maxDuration float64, out string) error {
	if len(parts) == 0 {
		return fmt.Errorf("concat %s: no parts", out)
	}
	dir, err := os.MkdirTemp(filepath.Dir(out), ".concat-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	body, err := concatList(parts)
	if err != nil {
		return err
	}
	list := filepath.Join(dir, "list.txt")
	if err := os.WriteFile(list, []byte(body), 0o644); err != nil {
		return err
	}

	mode := audioSource
	if info, err := a.Probe(ctx, parts[0]); err == nil && !info.HasAudio {
		mode = audioSilent
	}

	part := out + partSuffix
	defer os.Remove(part)
	err = a.run(ctx, "concat", concatArgs(list, c, maxDuration, mode, part))
	if err != nil && ctx.Err() == nil {
		a.log.Warn().Err(err).Str("output", out).Msg("concat failed, retrying without audio")
		err = a.run(ctx, "concat without audio", concatArgs(list, c, maxDuration, audioNone, part))
	}
	if err != nil {
		return err
	}
	return os.Rename(part, out)
}
