package ytdlp

import (
	"os"
	"path/filepath"
	"testing"
)

func TestIsURL(t *testing.T) {
	tests := map[string]bool{
		"https://youtu.be/abc":  true,
		"http://example.com/v":  true,
		"/tmp/video.mp4":        false,
		"video.mp4":             false,
		"ftp://example.com/v":   false,
		"https:///missing-host": false,
	}
	for in, want := range tests {
		if got := IsURL(in); got != want {
			t.Fatalf("IsURL(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestResolvePath(t *testing.T) {
	dir := t.TempDir()
	printed := filepath.Join(dir, "abc.mp4")
	if err := os.WriteFile(printed, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := resolvePath(printed+"\n", dir, "abc")
	if err != nil || got != printed {
		t.Fatalf("resolvePath = %q, %v", got, err)
	}

	webm := filepath.Join(dir, "def.webm")
	if err := os.WriteFile(webm, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err = resolvePath("", dir, "def")
	if err != nil || got != webm {
		t.Fatalf("fallback resolvePath = %q, %v", got, err)
	}

	if _, err := resolvePath("", dir, "missing"); err == nil {
		t.Fatalf("expected error for missing download")
	}
}
