package imageio

import (
	"image"
	"testing"
)

func TestIsSupported(t *testing.T) {
	cases := []struct {
		path string
		want bool
	}{
		{"shot.png", true},
		{"SHOT.PNG", true},
		{"frame.jpeg", true},
		{"frame.bmp", true},
		{"notes.txt", false},
		{"archive.tar.gz", false},
		{"noext", false},
	}
	for _, tc := range cases {
		if got := IsSupported(tc.path); got != tc.want {
			t.Errorf("IsSupported(%q): expected %v, got %v", tc.path, tc.want, got)
		}
	}
}

func TestThumbnailShrinksLargeImage(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 400, 100))
	out := Thumbnail(src, 200, 200)
	b := out.Bounds()
	if b.Dx() != 200 || b.Dy() != 50 {
		t.Errorf("expected 200x50, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestThumbnailKeepsSmallImage(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 50, 50))
	if out := Thumbnail(src, 200, 200); out != src {
		t.Error("small images should pass through unchanged")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/shot.png"); err == nil {
		t.Error("expected an error for a missing file")
	}
}
