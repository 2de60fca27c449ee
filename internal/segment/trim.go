package segment

import (
	"image"
	"math"

	"warscan/pkg/profile"

	"gocv.io/x/gocv"
)

// trimSide selects which end of the row a sub-image came from; it decides
// where the anchored span starts growing.
type trimSide int

const (
	sideLeft  trimSide = iota // attacker column, anchor at the last on column
	sideRight                 // defender column, anchor at the first on column
)

// anchoredSpan grows a contiguous span outward from an anchor column,
// tolerating up to gapAllow consecutive off columns so stroke gaps inside a
// nickname do not truncate it. Returns false when no column is on.
func anchoredSpan(colsOK []bool, side trimSide, gapAllow int) (int, int, bool) {
	first, last := -1, -1
	for i, ok := range colsOK {
		if !ok {
			continue
		}
		if first < 0 {
			first = i
		}
		last = i
	}
	if first < 0 {
		return 0, 0, false
	}
	anchor := last
	if side == sideRight {
		anchor = first
	}

	left := anchor
	gaps := 0
	for i := anchor - 1; i >= 0; i-- {
		if colsOK[i] {
			left = i
			gaps = 0
			continue
		}
		gaps++
		if gaps > gapAllow {
			break
		}
	}
	right := anchor
	gaps = 0
	for i := anchor + 1; i < len(colsOK); i++ {
		if colsOK[i] {
			right = i
			gaps = 0
			continue
		}
		gaps++
		if gaps > gapAllow {
			break
		}
	}
	return left, right, true
}

// columnMeans returns per-column means of a CV32F mat.
func columnMeans(m gocv.Mat) []float64 {
	dst := gocv.NewMat()
	defer dst.Close()
	gocv.Reduce(m, &dst, 0, gocv.ReduceAvg, gocv.MatTypeCV32F)
	out := make([]float64, dst.Cols())
	for x := range out {
		out[x] = float64(dst.GetFloatAt(0, x))
	}
	return out
}

// cropSpan pads and clips a span, returning a clone of the covered columns
// when the result meets the minimum width.
func cropSpan(img gocv.Mat, i1, i2 int, prm Params) (gocv.Mat, bool) {
	x1 := max(0, i1-prm.TrimPadPx)
	x2 := min(img.Cols(), i2+1+prm.TrimPadPx)
	if x2-x1 < prm.TrimMinWidth {
		return gocv.Mat{}, false
	}
	region := img.Region(image.Rect(x1, 0, x2, img.Rows()))
	defer region.Close()
	return region.Clone(), true
}

// trimHorizontal cuts a left/right sub-image down to its text-bearing
// columns using the trim mask, falling back to gradient energy when the mask
// carries no signal, and to the untrimmed image when both fail. The returned
// Mat is always a clone the caller owns.
func trimHorizontal(img, mask, grad gocv.Mat, side trimSide, prm Params) gocv.Mat {
	if img.Empty() || mask.Empty() {
		return safeClone(img)
	}
	hs := mask.Rows()

	// Mask route: per-column on-pixel counts.
	col := profile.SmoothGaussian(scaleAll(columnSums(mask), 1.0/255.0), prm.TrimSmoothK|1)
	peak := maxOf(col)
	if peak > 1e-6 {
		thrAbs := prm.TrimAbsFracH * float64(hs)
		thr := math.Max(prm.TrimPeakFrac*peak, thrAbs)
		colsOK := threshold(col, thr)
		if !anyTrue(colsOK) {
			colsOK = threshold(col, math.Max(0.06*peak, 0.5*thrAbs))
		}
		if i1, i2, ok := anchoredSpan(colsOK, side, prm.TrimGapPx); ok {
			if out, ok := cropSpan(img, i1, i2, prm); ok {
				return out
			}
		}
	}

	// Fallback: edge energy.
	mag := grad
	owned := false
	if mag.Empty() {
		mag = sobelMagOf(img)
		owned = true
	}
	colE := profile.SmoothGaussian(columnMeans(mag), prm.TrimSmoothK|1)
	if owned {
		mag.Close()
	}
	if peakE := maxOf(colE); peakE > 1e-6 {
		colsOK := threshold(colE, prm.TrimGradFrac*peakE)
		if i1, i2, ok := anchoredSpan(colsOK, side, prm.TrimGapPx); ok {
			if out, ok := cropSpan(img, i1, i2, prm); ok {
				return out
			}
		}
	}
	return safeClone(img)
}

func sobelMagOf(bgr gocv.Mat) gocv.Mat {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(bgr, &gray, gocv.ColorBGRToGray)
	gx := gocv.NewMat()
	defer gx.Close()
	gy := gocv.NewMat()
	defer gy.Close()
	gocv.Sobel(gray, &gx, gocv.MatTypeCV32F, 1, 0, 3, 1, 0, gocv.BorderDefault)
	gocv.Sobel(gray, &gy, gocv.MatTypeCV32F, 0, 1, 3, 1, 0, gocv.BorderDefault)
	mag := gocv.NewMat()
	gocv.Magnitude(gx, gy, &mag)
	return mag
}

func safeClone(m gocv.Mat) gocv.Mat {
	if m.Empty() {
		return gocv.NewMat()
	}
	return m.Clone()
}

func scaleAll(xs []float64, f float64) []float64 {
	for i := range xs {
		xs[i] *= f
	}
	return xs
}

func maxOf(xs []float64) float64 {
	m := 0.0
	for _, v := range xs {
		if v > m {
			m = v
		}
	}
	return m
}

func threshold(xs []float64, thr float64) []bool {
	out := make([]bool, len(xs))
	for i, v := range xs {
		out[i] = v >= thr
	}
	return out
}

func anyTrue(xs []bool) bool {
	for _, v := range xs {
		if v {
			return true
		}
	}
	return false
}
