package segment

import (
	"image"
	"math"
	"testing"

	"warscan/pkg/geometry"

	"gocv.io/x/gocv"
)

func TestDetectByProfileFindsStripes(t *testing.T) {
	mask := gocv.NewMatWithSize(200, 40, gocv.MatTypeCV8U)
	defer mask.Close()
	centers := []float64{23, 63, 103, 143}
	for _, c := range centers {
		y := int(c)
		stripe := mask.Region(image.Rect(0, y-3, 40, y+4))
		stripe.SetTo(gocv.NewScalar(255, 0, 0, 0))
		stripe.Close()
	}

	boxes := detectByProfile(mask, 20, 40, 0, DefaultParams())
	if len(boxes) != len(centers) {
		t.Fatalf("expected %d boxes, got %d", len(centers), len(boxes))
	}
	for i, b := range boxes {
		if d := math.Abs(b.CenterY() - centers[i]); d > 4 {
			t.Errorf("box %d: center %.1f too far from %.1f", i, b.CenterY(), centers[i])
		}
	}
}

func TestDetectByProfileEmptyMask(t *testing.T) {
	mask := gocv.NewMatWithSize(100, 30, gocv.MatTypeCV8U)
	defer mask.Close()
	if boxes := detectByProfile(mask, 15, 30, 0, DefaultParams()); len(boxes) != 0 {
		t.Errorf("expected no boxes on a blank mask, got %d", len(boxes))
	}
}

func TestClusterByYMergesSameRow(t *testing.T) {
	boxes := []geometry.RectInt{
		{X: 10, Y: 100, Width: 8, Height: 10},
		{X: 12, Y: 101, Width: 8, Height: 12}, // same row, taller
		{X: 10, Y: 140, Width: 8, Height: 10},
	}
	out := clusterByY(boxes, DefaultParams())
	if len(out) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(out))
	}
	if out[0].Height != 12 {
		t.Errorf("expected the taller member to represent the row, got height %d", out[0].Height)
	}
}

func TestClusterByYSplitsBarelyOverlapping(t *testing.T) {
	// Close in center distance but almost disjoint vertically: two rows.
	boxes := []geometry.RectInt{
		{X: 10, Y: 100, Width: 8, Height: 8},
		{X: 10, Y: 108, Width: 8, Height: 8},
		{X: 10, Y: 160, Width: 8, Height: 8},
		{X: 10, Y: 220, Width: 8, Height: 8},
	}
	out := clusterByY(boxes, DefaultParams())
	if len(out) != 4 {
		t.Errorf("expected 4 rows, got %d", len(out))
	}
}

func TestFuseDetectionsRules(t *testing.T) {
	near := func(c, p geometry.RectInt) bool {
		return math.Abs(p.CenterY()-c.CenterY()) <= 10
	}

	contour := []geometry.RectInt{
		{Y: 100, Height: 10, Width: 10},
		{Y: 300, Height: 10, Width: 10},
	}
	prof := []geometry.RectInt{
		{Y: 98, Height: 8, Width: 6},  // supports contour 0
		{Y: 104, Height: 8, Width: 6}, // also supports contour 0
		{Y: 500, Height: 8, Width: 6}, // unmatched
	}

	out := fuseDetections(contour, prof, near)
	// Contour 0 is replaced by its two profile boxes, contour 1 stands
	// alone, and the stray profile box is appended.
	if len(out) != 4 {
		t.Fatalf("expected 4 boxes, got %d", len(out))
	}
	if out[0].Y != 98 || out[1].Y != 104 {
		t.Errorf("expected profile boxes to replace the contour box, got %+v", out[:2])
	}
	if out[2].Y != 300 {
		t.Errorf("expected the unsupported contour box to survive, got %+v", out[2])
	}
	if out[3].Y != 500 {
		t.Errorf("expected the stray profile box to be appended, got %+v", out[3])
	}
}

func TestRefineMidColumn(t *testing.T) {
	boxes := []geometry.RectInt{
		{X: 100, Width: 10},
		{X: 102, Width: 10},
		{X: 98, Width: 10},
	}
	got := refineMidColumn(50, boxes)
	if got < 103 || got > 107 {
		t.Errorf("expected refined mid near 105, got %d", got)
	}
	if refineMidColumn(50, nil) != 50 {
		t.Error("expected input mid when no boxes exist")
	}
}

func TestMidBoundsFromGlobalX(t *testing.T) {
	mx1, mx2 := midBoundsFromGlobalX(100, 50, 20)
	if mx2-mx1 != 20 || mx1 != 40 {
		t.Errorf("expected [40,60), got [%d,%d)", mx1, mx2)
	}

	// Near the right edge the window shifts back inside the frame.
	mx1, mx2 = midBoundsFromGlobalX(100, 98, 20)
	if mx2 != 100 || mx2-mx1 != 20 {
		t.Errorf("expected a full-width window ending at 100, got [%d,%d)", mx1, mx2)
	}
}

func TestYBounds(t *testing.T) {
	y1, y2 := yBounds(200, [2]float64{0.1, 0.9})
	if y1 != 20 || y2 != 180 {
		t.Errorf("expected [20,180), got [%d,%d)", y1, y2)
	}
}

func TestTargetRowHeight(t *testing.T) {
	hexes := []geometry.RectInt{
		{Height: 20}, {Height: 21}, {Height: 22}, {Height: 60},
	}
	prm := DefaultParams()
	got := targetRowHeight(hexes, 500, prm)
	// The outlier is trimmed away; the result tracks the typical height.
	if got < 20 || got > 30 {
		t.Errorf("expected target near the typical height, got %d", got)
	}
}
