package subtitles

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/forPelevin/reelcut/internal/types"
)

// Style controls how cues are burned into frames.
type Style struct {
	FontSize    float64
	WidthRatio  float64
	AnchorY     float64
	LineSpacing float64
	Text        color.Color
	Stroke      color.Color
	StrokeWidth int
	Box         color.Color
	BoxPadX     int
	BoxPadY     int
}

func DefaultStyle() Style {
	return Style{
		FontSize:    40,
		WidthRatio:  0.7,
		AnchorY:     0.75,
		LineSpacing: 1.2,
		Text:        color.White,
		Stroke:      color.Black,
		StrokeWidth: 2,
		Box:         color.NRGBA{A: 180},
		BoxPadX:     10,
		BoxPadY:     5,
	}
}

// Overlay draws the cue active at clip time t onto frames in place. It
// holds a parsed font face and is not safe for concurrent use.
type Overlay struct {
	style Style
	face  font.Face
}

func NewOverlay(style Style) (*Overlay, error) {
	f, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    style.FontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("font face: %w", err)
	}
	return &Overlay{style: style, face: face}, nil
}

func (o *Overlay) Close() error { return o.face.Close() }

// Apply draws the cue active at t, centred horizontally with the text block
// centred on AnchorY of the frame height. It reports whether anything was
// drawn.
func (o *Overlay) Apply(frame *image.RGBA, t float64, cues []types.Cue) bool {
	cue, ok := Active(cues, t)
	if !ok {
		return false
	}
	b := frame.Bounds()
	lines := Wrap(o.face, cue.Text, int(float64(b.Dx())*o.style.WidthRatio))
	if len(lines) == 0 {
		return false
	}

	m := o.face.Metrics()
	ascent := m.Ascent.Ceil()
	textH := (m.Ascent + m.Descent).Ceil()
	lineH := o.style.FontSize * o.style.LineSpacing
	top := float64(b.Dy())*o.style.AnchorY - float64(len(lines))*lineH/2

	for i, ln := range lines {
		w := font.MeasureString(o.face, ln).Ceil()
		x := b.Min.X + (b.Dx()-w)/2
		y := b.Min.Y + int(top+float64(i)*lineH)

		box := image.Rect(x-o.style.BoxPadX, y-o.style.BoxPadY, x+w+o.style.BoxPadX, y+textH+o.style.BoxPadY)
		draw.Draw(frame, box.Intersect(b), image.NewUniform(o.style.Box), image.Point{}, draw.Over)

		sw := o.style.StrokeWidth
		for _, d := range [][2]int{{-sw, -sw}, {-sw, sw}, {sw, -sw}, {sw, sw}} {
			o.text(frame, ln, x+d[0], y+ascent+d[1], o.style.Stroke)
		}
		o.text(frame, ln, x, y+ascent, o.style.Text)
	}
	return true
}

func (o *Overlay) text(dst *image.RGBA, s string, x, baseline int, c color.Color) {
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: o.face,
		Dot:  fixed.P(x, baseline),
	}
	d.DrawString(s)
}
