package segment

import (
	"image"
	"testing"

	"gocv.io/x/gocv"
)

func TestAnchoredSpanLeftSide(t *testing.T) {
	// Text columns with an internal gap; the left side anchors at the last
	// on column and grows back through the gap.
	cols := []bool{false, true, true, false, false, true, true, true, false}
	i1, i2, ok := anchoredSpan(cols, sideLeft, 2)
	if !ok {
		t.Fatal("expected a span")
	}
	if i1 != 1 || i2 != 7 {
		t.Errorf("expected span [1,7], got [%d,%d]", i1, i2)
	}
}

func TestAnchoredSpanRightSide(t *testing.T) {
	cols := []bool{false, true, true, false, false, true, true, true, false}
	i1, i2, ok := anchoredSpan(cols, sideRight, 2)
	if !ok {
		t.Fatal("expected a span")
	}
	if i1 != 1 || i2 != 7 {
		t.Errorf("expected span [1,7], got [%d,%d]", i1, i2)
	}
}

func TestAnchoredSpanStopsAtWideGap(t *testing.T) {
	cols := []bool{true, false, false, false, true, true}
	i1, i2, ok := anchoredSpan(cols, sideLeft, 2)
	if !ok {
		t.Fatal("expected a span")
	}
	// Anchor is the last on column (5); a 3-wide gap exceeds the allowance,
	// so the isolated column 0 is excluded.
	if i1 != 4 || i2 != 5 {
		t.Errorf("expected span [4,5], got [%d,%d]", i1, i2)
	}
}

func TestAnchoredSpanNoSignal(t *testing.T) {
	if _, _, ok := anchoredSpan([]bool{false, false, false}, sideLeft, 2); ok {
		t.Error("expected no span on an empty mask")
	}
}

func TestThresholdAndMaxOf(t *testing.T) {
	xs := []float64{0.1, 0.9, 0.4}
	if got := maxOf(xs); got != 0.9 {
		t.Errorf("expected max 0.9, got %f", got)
	}
	ok := threshold(xs, 0.4)
	want := []bool{false, true, true}
	for i := range want {
		if ok[i] != want[i] {
			t.Errorf("index %d: expected %v, got %v", i, want[i], ok[i])
		}
	}
}

func TestTrimHorizontalFallsBackToUntrimmed(t *testing.T) {
	img := gocv.NewMatWithSize(20, 60, gocv.MatTypeCV8UC3)
	defer img.Close()
	mask := gocv.NewMatWithSize(20, 60, gocv.MatTypeCV8U)
	defer mask.Close()

	// Blank mask and flat image: both routes fail, the untrimmed clone
	// comes back.
	out := trimHorizontal(img, mask, gocv.NewMat(), sideLeft, DefaultParams())
	defer out.Close()
	if out.Cols() != img.Cols() || out.Rows() != img.Rows() {
		t.Errorf("expected untrimmed size %dx%d, got %dx%d",
			img.Cols(), img.Rows(), out.Cols(), out.Rows())
	}
}

func TestTrimHorizontalIdempotent(t *testing.T) {
	img := gocv.NewMatWithSize(30, 120, gocv.MatTypeCV8UC3)
	defer img.Close()
	mask := gocv.NewMatWithSize(30, 120, gocv.MatTypeCV8U)
	defer mask.Close()
	block := mask.Region(image.Rect(40, 0, 70, 30))
	block.SetTo(gocv.NewScalar(255, 0, 0, 0))
	block.Close()

	prm := DefaultParams()
	prm.TrimSmoothK = 1

	out1 := trimHorizontal(img, mask, gocv.NewMat(), sideLeft, prm)
	defer out1.Close()
	// The padded span covers columns [37, 73); mask1 is the matching mask
	// window, so the second pass sees the text at the same offsets.
	if out1.Cols() != 36 {
		t.Fatalf("expected the padded 36-column span, got %d", out1.Cols())
	}
	m1 := mask.Region(image.Rect(37, 0, 37+out1.Cols(), 30))
	mask1 := m1.Clone()
	m1.Close()
	defer mask1.Close()

	out2 := trimHorizontal(out1, mask1, gocv.NewMat(), sideLeft, prm)
	defer out2.Close()
	if out2.Cols() != out1.Cols() {
		t.Errorf("re-trimming a trimmed row must keep its width: %d vs %d",
			out2.Cols(), out1.Cols())
	}
}

func TestTrimHorizontalCutsToMaskSpan(t *testing.T) {
	img := gocv.NewMatWithSize(30, 120, gocv.MatTypeCV8UC3)
	defer img.Close()
	mask := gocv.NewMatWithSize(30, 120, gocv.MatTypeCV8U)
	defer mask.Close()

	// Text occupies columns 40..69 across most of the height.
	text := mask.Region(image.Rect(40, 5, 70, 25))
	text.SetTo(gocv.NewScalar(255, 0, 0, 0))
	text.Close()

	prm := DefaultParams()
	out := trimHorizontal(img, mask, gocv.NewMat(), sideLeft, prm)
	defer out.Close()

	if out.Cols() >= img.Cols() {
		t.Errorf("expected a trimmed width, got full %d", out.Cols())
	}
	wantMin := 30
	wantMax := 30 + 2*prm.TrimPadPx + 2*prm.TrimSmoothK
	if out.Cols() < wantMin || out.Cols() > wantMax {
		t.Errorf("trimmed width %d outside [%d,%d]", out.Cols(), wantMin, wantMax)
	}
	if out.Rows() != img.Rows() {
		t.Errorf("trim must not change height: got %d", out.Rows())
	}
}
