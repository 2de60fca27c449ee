package segment

import (
	"errors"
	"image"
	"math"
	"testing"

	"gocv.io/x/gocv"
)

// markerFrame renders a neutral gray frame with one dark square marker per
// row at the given y positions, all centered on markerX.
func markerFrame(t *testing.T, w, h, markerX int, ys []int) gocv.Mat {
	t.Helper()
	m := gocv.NewMatWithSize(h, w, gocv.MatTypeCV8UC3)
	m.SetTo(gocv.NewScalar(150, 150, 150, 0))
	for _, y := range ys {
		r := m.Region(image.Rect(markerX-7, y, markerX+7, y+14))
		r.SetTo(gocv.NewScalar(30, 30, 30, 0))
		r.Close()
	}
	return m
}

func TestSegmentThreeMarkers(t *testing.T) {
	frame := markerFrame(t, 400, 300, 200, []int{60, 120, 180})
	defer frame.Close()

	seg := NewSegmenter(DefaultParams(), nil)
	rows, mem, err := seg.Segment(frame, Memory{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		for i := range rows {
			rows[i].Close()
		}
	}()

	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	for i, r := range rows {
		c := float64(r.MidBounds[0]+r.MidBounds[1]) / 2
		if math.Abs(c-200) > 12 {
			t.Errorf("row %d: mid bounds %v not centered on the marker column", i, r.MidBounds)
		}
		if r.Mid.Empty() {
			t.Errorf("row %d: empty mid crop", i)
		}
	}
	if !mem.Valid {
		t.Error("segmenting rows should prime the layout memory")
	}
}

func TestSegmentEmptyFrame(t *testing.T) {
	seg := NewSegmenter(DefaultParams(), nil)
	_, _, err := seg.Segment(gocv.NewMat(), Memory{}, nil)
	if !errors.Is(err, ErrEmptyFrame) {
		t.Errorf("expected ErrEmptyFrame, got %v", err)
	}
}

func TestMemoryReset(t *testing.T) {
	mem := Memory{MidFrac: 0.5, MidWidthFrac: 0.07, Valid: true}
	mem.Reset()
	if mem.Valid || mem.MidFrac != 0 || mem.MidWidthFrac != 0 {
		t.Errorf("reset should zero the memory, got %+v", mem)
	}
}

func TestSessionResetDropsLayout(t *testing.T) {
	s := NewSession(NewSegmenter(DefaultParams(), nil))
	s.mem = Memory{MidFrac: 0.4, Valid: true}
	s.Reset()
	if s.mem.Valid {
		t.Error("session reset should invalidate the remembered layout")
	}
}
