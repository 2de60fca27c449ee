package side

import (
	"image"
	"testing"

	"gocv.io/x/gocv"
)

func filled(b, g, r float64) gocv.Mat {
	m := gocv.NewMatWithSize(16, 16, gocv.MatTypeCV8UC3)
	m.SetTo(gocv.NewScalar(b, g, r, 0))
	return m
}

func TestClassifyEnemyColor(t *testing.T) {
	m := filled(0xa0, 0x8d, 0xde)
	defer m.Close()
	if got := Classify(m); got != Enemy {
		t.Errorf("expected enemy for the marker pink, got %v", got)
	}
}

func TestClassifyNearEnemyColor(t *testing.T) {
	// A few units off in every channel still reads as enemy.
	m := filled(0x9a, 0x90, 0xd8)
	defer m.Close()
	if got := Classify(m); got != Enemy {
		t.Errorf("expected enemy for a near-pink fill, got %v", got)
	}
}

func TestClassifySparsePinkPixels(t *testing.T) {
	// A mostly dark marker with a thin pink border: the mean color is far
	// from pink, but any matching pixel decides the side.
	m := filled(20, 20, 20)
	defer m.Close()
	px := m.Region(image.Rect(0, 0, 16, 1))
	px.SetTo(gocv.NewScalar(0xa0, 0x8d, 0xde, 0))
	px.Close()

	if got := Classify(m); got != Enemy {
		t.Errorf("expected enemy for a dark crop with pink pixels, got %v", got)
	}
}

func TestClassifyFriendly(t *testing.T) {
	cases := []struct {
		name    string
		b, g, r float64
	}{
		{"black", 0, 0, 0},
		{"white", 255, 255, 255},
		{"blue", 200, 80, 30},
	}
	for _, tc := range cases {
		m := filled(tc.b, tc.g, tc.r)
		if got := Classify(m); got != Friendly {
			t.Errorf("%s: expected friendly, got %v", tc.name, got)
		}
		m.Close()
	}
}

func TestClassifyEmptyCrop(t *testing.T) {
	if got := Classify(gocv.NewMat()); got != Friendly {
		t.Errorf("expected friendly default for empty crop, got %v", got)
	}
}

func TestSideString(t *testing.T) {
	if Friendly.String() != "friendly" || Enemy.String() != "enemy" {
		t.Error("unexpected side names")
	}
}
