package subtitles

import (
	"strings"

	"golang.org/x/image/font"
)

// Wrap breaks text into lines no wider than maxWidth pixels when drawn with
// face. A single word wider than maxWidth gets a line of its own.
func Wrap(face font.Face, text string, maxWidth int) []string {
	var lines []string
	cur := ""
	for _, w := range strings.Fields(text) {
		test := w
		if cur != "" {
			test = cur + " " + w
		}
		if cur == "" || font.MeasureString(face, test).Ceil() <= maxWidth {
			cur = test
			continue
		}
		lines = append(lines, cur)
		cur = w
	}
	if cur != "" {
		lines = append(lines, cur)
	}
	return lines
}
