package types

type Transcript struct {
	Segments []Segment `json:"segments"`
}

// Text joins all segment texts with single spaces.
func (t Transcript) Text() string {
	n := 0
	for _, s := range t.Segments {
		n += len(s.Text) + 1
	}
	b := make([]byte, 0, n)
	for i, s := range t.Segments {
		if i > 0 {
			b = append(b, ' ')
		}
		b = append(b, s.Text...)
	}
	return string(b)
}

type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
	Words []Word  `json:"words,omitempty"`
}

func (s Segment) Interval() TimeInterval { return TimeInterval{Start: s.Start, End: s.End} }

type Word struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Word  string  `json:"word"`
}

// TimeInterval is a span of source video in seconds.
type TimeInterval struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

func (iv TimeInterval) Duration() float64 { return iv.End - iv.Start }

// Valid reports end > start >= 0.
func (iv TimeInterval) Valid() bool { return iv.Start >= 0 && iv.End > iv.Start }

type ScoredSegment struct {
	Interval TimeInterval
	Text     string
	Score    float64
	Hashtags []string
}

type MotionInterval struct {
	Interval         TimeInterval
	FrameMotionScore float64
}

// Canvas is a fixed output size in pixels.
type Canvas struct {
	Name   string `json:"name" yaml:"name"`
	Width  int    `json:"width" yaml:"width"`
	Height int    `json:"height" yaml:"height"`
}

func (c Canvas) Aspect() float64 {
	if c.Height == 0 {
		return 0
	}
	return float64(c.Width) / float64(c.Height)
}

var (
	Landscape = Canvas{Name: "landscape", Width: 1920, Height: 1080}
	Portrait  = Canvas{Name: "portrait", Width: 1080, Height: 1920}
	Instagram = Canvas{Name: "instagram", Width: 1080, Height: 1350}
)

// Cue is a subtitle line timed relative to the start of a clip.
type Cue struct {
	Start float64
	End   float64
	Text  string
}

type RenderJob struct {
	Source    string
	Interval  TimeInterval
	Canvas    Canvas
	Subtitles []Cue
	Output    string
}

// VideoInfo is what the pipeline needs to know about a media file.
type VideoInfo struct {
	Duration float64
	Width    int
	Height   int
	FPS      float64
	HasAudio bool
}

// HighlightEntry is one element of highlights.json.
type HighlightEntry struct {
	Start        float64  `json:"start"`
	End          float64  `json:"end"`
	Text         string   `json:"text"`
	Score        float64  `json:"score"`
	Hashtags     []string `json:"hashtags"`
	File         *string  `json:"file"`
	PortraitFile *string  `json:"portrait_file"`
}

// FrameEntry is one element of frames.json.
type FrameEntry struct {
	HighlightIndex int     `json:"highlight_index"`
	FrameIndex     int     `json:"frame_index"`
	Format         string  `json:"format"`
	Time           float64 `json:"time"`
	File           string  `json:"file"`
}

// ReelEntry describes one concatenated reel of the motion pipeline.
type ReelEntry struct {
	Name     string         `json:"name"`
	Format   string         `json:"format"`
	Duration float64        `json:"duration"`
	Segments []TimeInterval `json:"segments"`
	File     *string        `json:"file"`
}

// PlatformClip describes one packed platform output of the shorts pipeline.
type PlatformClip struct {
	Platform string   `json:"platform"`
	Index    int      `json:"index"`
	Parts    []string `json:"parts"`
	Duration float64  `json:"duration"`
	Trimmed  bool     `json:"trimmed"`
	File     *string  `json:"file"`
}
