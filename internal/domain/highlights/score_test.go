package highlights

import (
	"reflect"
	"testing"

	"github.com/forPelevin/reelcut/internal/types"
)

func TestScore_Scenario(t *testing.T) {
	seg := types.Segment{Start: 10, End: 14, Text: "important point?"}
	got := Score(seg, []float64{10.2}, []string{"important"}, []types.TimeInterval{{Start: 10.5, End: 20}})
	if got != 5.5 {
		t.Fatalf("expected 5.5, got %v", got)
	}
}

func TestScore_Table(t *testing.T) {
	tests := []struct {
		name     string
		seg      types.Segment
		peaks    []float64
		keywords []string
		scenes   []types.TimeInterval
		want     float64
	}{
		{"empty short", types.Segment{Start: 0, End: 1, Text: "hm"}, nil, nil, nil, -0.5},
		{"neutral duration", types.Segment{Start: 0, End: 25, Text: "long talk"}, nil, nil, nil, 0},
		{"very long", types.Segment{Start: 0, End: 31, Text: "long talk"}, nil, nil, nil, -0.5},
		{"duration bounds inclusive", types.Segment{Start: 0, End: 20, Text: "x"}, nil, nil, nil, 0.5},
		{"peak slack before", types.Segment{Start: 10, End: 15, Text: "x"}, []float64{9.5}, nil, nil, 1.5},
		{"peak outside", types.Segment{Start: 10, End: 15, Text: "x"}, []float64{9.4, 15.6}, nil, nil, 0.5},
		{"keyword count case insensitive", types.Segment{Start: 0, End: 5, Text: "AI and ai, Coding"}, nil, []string{"ai", "coding"}, nil, 6.5},
		{"empty keyword ignored", types.Segment{Start: 0, End: 5, Text: "abc"}, nil, []string{""}, nil, 0.5},
		{"scene exactly one second away", types.Segment{Start: 10, End: 15, Text: "x"}, nil, nil, []types.TimeInterval{{Start: 11, End: 12}}, 0.5},
		{"exclamation", types.Segment{Start: 0, End: 5, Text: "wow!"}, nil, nil, nil, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(tt.seg, tt.peaks, tt.keywords, tt.scenes); got != tt.want {
				t.Fatalf("Score = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHashtags(t *testing.T) {
	got := Hashtags("Students learn AI coding, fast! Важно знать", []string{"ai", "Learning"})
	// "coding," and "fast!" carry punctuation, "AI" is too short.
	want := []string{"#ai", "#learn", "#learning", "#students", "#важно", "#знать"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Hashtags = %v, want %v", got, want)
	}
}

func TestScoreTranscript_DropsNonPositive(t *testing.T) {
	tr := types.Transcript{Segments: []types.Segment{
		{Start: 0, End: 1, Text: "uh"},
		{Start: 1, End: 6, Text: "students love coding"},
		{Start: 6, End: 40, Text: "rambling"},
	}}
	got := ScoreTranscript(tr, nil, nil, []string{"coding"})
	if len(got) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(got))
	}
	for _, s := range got {
		if s.Score <= 0 {
			t.Fatalf("segment with non-positive score selected: %+v", s)
		}
	}
	if got[0].Score != 2.5 {
		t.Fatalf("unexpected score %v", got[0].Score)
	}
	if !reflect.DeepEqual(got[0].Hashtags, []string{"#coding", "#love", "#students"}) {
		t.Fatalf("unexpected hashtags %v", got[0].Hashtags)
	}
}
