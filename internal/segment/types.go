// Package segment turns a battle-report screenshot into per-row crop
// triplets: attacker name, score column, defender name. The pipeline is
// dialog localization, shared color-plane preprocessing, mask building,
// dual-detector row finding, and mask-guided slicing/trimming.
package segment

import (
	"image"

	"warscan/pkg/geometry"

	"gocv.io/x/gocv"
)

// RowSlice holds one combat row's crops. All Mats are clones owned by the
// caller; Close releases them.
type RowSlice struct {
	Bounds     [2]int           // (y1, y2) of the row window in ROI coordinates
	Hex        geometry.RectInt // detected row marker box
	Row        gocv.Mat         // full-width row crop
	Left       gocv.Mat         // trimmed attacker crop
	Mid        gocv.Mat         // score column crop
	Right      gocv.Mat         // trimmed defender crop
	MidBounds  [2]int           // (mx1, mx2) of the mid column
	XMidGlobal int              // global mid column used, -1 in per-row mode
}

// Close releases the crops.
func (r *RowSlice) Close() {
	for _, m := range []*gocv.Mat{&r.Row, &r.Left, &r.Mid, &r.Right} {
		if !m.Empty() {
			m.Close()
		}
	}
}

// Memory is the cross-call mid-column hint. It is owned by the caller,
// passed into Segment and returned updated; both fractions are set together
// or not at all. Reuse across unrelated frame sequences anchors detection on
// a stale column, so reset it between datasets.
type Memory struct {
	MidFrac      float64 // mid column as fraction of ROI width
	MidWidthFrac float64 // mid crop width as fraction of ROI width
	Valid        bool
}

// Reset invalidates the hint.
func (m *Memory) Reset() {
	*m = Memory{}
}

// rectOf converts a RectInt to the image.Rectangle gocv regions expect.
func rectOf(r geometry.RectInt) image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// yBounds converts a fractional y-range into pixel bounds, falling back to
// the full height when the result is degenerate.
func yBounds(h int, yr [2]float64) (int, int) {
	y1 := geometry.Clip(int(yr[0]*float64(h)), 0, h-1)
	y2 := geometry.Clip(int(yr[1]*float64(h)), 1, h)
	if y2 <= y1+1 {
		return 0, h
	}
	return y1, y2
}
