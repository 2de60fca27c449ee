package segment

import (
	"image"
	"math"

	"warscan/pkg/geometry"
	"warscan/pkg/profile"

	"gocv.io/x/gocv"
)

// midBoundsFromGlobalX turns a mid column x and desired width into safe
// [x1, x2) bounds within [0, w).
func midBoundsFromGlobalX(w, xMid, width int) (int, int) {
	width = max(1, width)
	c := geometry.Clip(xMid, 0, w-1)
	mx1 := geometry.Clip(c-width/2, 0, w-1)
	mx2 := geometry.Clip(mx1+width, 1, w)
	if mx2-mx1 < width {
		mx1 = geometry.Clip(mx2-width, 0, w-1)
	}
	return mx1, mx2
}

// targetRowHeight derives the row window height from the detected marker
// heights: a gain-adjusted trimmed median, floored by the median marker
// height plus vertical padding, capped to the frame.
func targetRowHeight(hexes []geometry.RectInt, frameH int, prm Params) int {
	heights := make([]float64, len(hexes))
	for i, b := range hexes {
		heights[i] = float64(b.Height)
	}
	target := int(profile.TrimmedMedian(heights) * prm.RowHeightGain)
	minByHex := int(profile.Median(heights) * (1 + 2*prm.RowPadY))
	target = max(target, minByHex)
	return max(1, min(target, frameH))
}

// sliceRows converts marker boxes into per-row left/mid/right crops. The
// vertical window keeps its height when it hits a frame edge by shifting
// instead of shrinking. xMidGlobal < 0 selects per-row mid bounds derived
// from each marker box instead of the locked global column.
func sliceRows(roi gocv.Mat, hexes []geometry.RectInt, trimMask, grad gocv.Mat, xMidGlobal, fixedMidW int, prm Params) []RowSlice {
	if len(hexes) == 0 {
		return nil
	}
	h, w := roi.Rows(), roi.Cols()
	rowH := targetRowHeight(hexes, h, prm)

	baseMinMidW := max(int(prm.MinMidWFrac*float64(w)), int(prm.MinMidWRow*float64(rowH)))
	midWForAll := baseMinMidW
	if fixedMidW > 0 {
		midWForAll = fixedMidW
	}

	rows := make([]RowSlice, 0, len(hexes))
	for _, hex := range hexes {
		cy := hex.CenterY()
		y1 := int(math.Round(cy - float64(rowH)/2))
		y2 := y1 + rowH
		// Shift the window back inside the frame without changing its height.
		if y1 < 0 {
			y2 -= y1
			y1 = 0
		}
		if y2 > h {
			y1 -= y2 - h
			y2 = h
		}
		y1 = geometry.Clip(y1, 0, h-1)
		y2 = geometry.Clip(y1+rowH, 1, h)

		rowImg := roi.Region(image.Rect(0, y1, w, y2))
		rowMask := trimMask.Region(image.Rect(0, y1, w, y2))
		rowGrad := grad.Region(image.Rect(0, y1, w, y2))

		var mx1, mx2 int
		if prm.LockMidToGlobal && xMidGlobal >= 0 {
			mx1, mx2 = midBoundsFromGlobalX(w, xMidGlobal, midWForAll)
		} else {
			pad := int(float64(w) * prm.MidPadX / 2)
			mx1 = geometry.Clip(hex.X-pad, 0, w-1)
			mx2 = geometry.Clip(hex.X+hex.Width+pad, 0, w-1)
			if mx2-mx1 < baseMinMidW {
				c := (mx1 + mx2) / 2
				mx1 = geometry.Clip(c-baseMinMidW/2, 0, w-1)
				mx2 = geometry.Clip(mx1+baseMinMidW, 1, w)
			}
		}

		left := trimSubImage(rowImg, rowMask, rowGrad, 0, mx1, sideLeft, prm)
		right := trimSubImage(rowImg, rowMask, rowGrad, mx2, w, sideRight, prm)
		mid := cloneCols(rowImg, mx1, mx2)

		row := rowImg.Clone()
		rowImg.Close()
		rowMask.Close()
		rowGrad.Close()

		rows = append(rows, RowSlice{
			Bounds:     [2]int{y1, y2},
			Hex:        hex,
			Row:        row,
			Left:       left,
			Mid:        mid,
			Right:      right,
			MidBounds:  [2]int{mx1, mx2},
			XMidGlobal: xMidGlobal,
		})
	}
	return rows
}

// trimSubImage trims the [x1,x2) columns of a row, returning an owned clone
// (empty Mat when the slice has no width).
func trimSubImage(rowImg, rowMask, rowGrad gocv.Mat, x1, x2 int, side trimSide, prm Params) gocv.Mat {
	if x2-x1 <= 0 {
		return gocv.NewMat()
	}
	img := rowImg.Region(image.Rect(x1, 0, x2, rowImg.Rows()))
	defer img.Close()
	mask := rowMask.Region(image.Rect(x1, 0, x2, rowMask.Rows()))
	defer mask.Close()
	grad := rowGrad.Region(image.Rect(x1, 0, x2, rowGrad.Rows()))
	defer grad.Close()
	return trimHorizontal(img, mask, grad, side, prm)
}

func cloneCols(m gocv.Mat, x1, x2 int) gocv.Mat {
	if x2-x1 <= 0 {
		return gocv.NewMat()
	}
	r := m.Region(image.Rect(x1, 0, x2, m.Rows()))
	defer r.Close()
	return r.Clone()
}
