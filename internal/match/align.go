package match

import (
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"
)

// ncc computes normalized cross correlation of two equal-size grayscale
// mats. Returns -1 when either image has no variance.
func ncc(a, b gocv.Mat) float64 {
	af := toFloat(a)
	defer af.Close()
	bf := toFloat(b)
	defer bf.Close()

	ma := af.Mean()
	mb := bf.Mean()
	za := gocv.NewMat()
	defer za.Close()
	zb := gocv.NewMat()
	defer zb.Close()
	af.SubtractFloat(float32(ma.Val1))
	bf.SubtractFloat(float32(mb.Val1))
	gocv.Multiply(af, bf, &za)
	gocv.Multiply(af, af, &zb)

	num := za.Sum().Val1
	denA := zb.Sum().Val1
	gocv.Multiply(bf, bf, &zb)
	denB := zb.Sum().Val1

	den := math.Sqrt(denA * denB)
	if den < 1e-9 {
		return -1
	}
	return num / den
}

func toFloat(m gocv.Mat) gocv.Mat {
	f := gocv.NewMat()
	m.ConvertTo(&f, gocv.MatTypeCV32F)
	return f
}

// cropCenter clones the central frac x frac region of a mat.
func cropCenter(m gocv.Mat, frac float64) gocv.Mat {
	w, h := m.Cols(), m.Rows()
	cw := max(1, int(float64(w)*frac))
	ch := max(1, int(float64(h)*frac))
	x := (w - cw) / 2
	y := (h - ch) / 2
	r := m.Region(image.Rect(x, y, x+cw, y+ch))
	defer r.Close()
	return r.Clone()
}

// sobelMag renders the gradient magnitude of a grayscale mat, scaled to
// unit standard deviation so edge NCC is insensitive to contrast.
func sobelMag(gray gocv.Mat) gocv.Mat {
	gx := gocv.NewMat()
	defer gx.Close()
	gy := gocv.NewMat()
	defer gy.Close()
	gocv.Sobel(gray, &gx, gocv.MatTypeCV32F, 1, 0, 3, 1, 0, gocv.BorderDefault)
	gocv.Sobel(gray, &gy, gocv.MatTypeCV32F, 0, 1, 3, 1, 0, gocv.BorderDefault)

	mag := gocv.NewMat()
	gocv.Magnitude(gx, gy, &mag)

	mean := mag.Mean().Val1
	sq := gocv.NewMat()
	defer sq.Close()
	gocv.Multiply(mag, mag, &sq)
	n := float64(mag.Rows() * mag.Cols())
	variance := sq.Sum().Val1/n - mean*mean
	if sd := math.Sqrt(math.Max(variance, 0)); sd > 1e-9 {
		mag.DivideFloat(float32(sd))
	}
	return mag
}

// rotateGray rotates a grayscale mat about its center, keeping size and
// replicating the border so the edges do not go black.
func rotateGray(gray gocv.Mat, deg float64) gocv.Mat {
	if deg == 0 {
		return gray.Clone()
	}
	center := image.Point{X: gray.Cols() / 2, Y: gray.Rows() / 2}
	rot := gocv.GetRotationMatrix2D(center, deg, 1.0)
	defer rot.Close()
	out := gocv.NewMat()
	gocv.WarpAffineWithParams(gray, &out, rot,
		image.Pt(gray.Cols(), gray.Rows()),
		gocv.InterpolationLinear, gocv.BorderReplicate, color.RGBA{})
	return out
}

// normalizedFloat converts an 8-bit gray mat to unit-range CV32F, the form
// the ECC solver fits on.
func normalizedFloat(gray gocv.Mat) gocv.Mat {
	f := gocv.NewMat()
	gray.ConvertTo(&f, gocv.MatTypeCV32F)
	f.DivideFloat(255)
	return f
}

// phaseShift measures the translation between two equal-size grayscale mats
// by phase correlation. Returns the shift and the correlation response.
func phaseShift(a, b gocv.Mat) (dx, dy, resp float64) {
	af := toFloat(a)
	defer af.Close()
	bf := toFloat(b)
	defer bf.Close()

	win := gocv.NewMat()
	defer win.Close()
	gocv.CreateHanningWindow(&win, image.Pt(a.Cols(), a.Rows()), gocv.MatTypeCV32F)

	shift, response := gocv.PhaseCorrelate(af, bf, win)
	return float64(shift.X), float64(shift.Y), response
}

// translateGray shifts a grayscale mat by (dx, dy) with border replication.
func translateGray(gray gocv.Mat, dx, dy float64) gocv.Mat {
	warp := gocv.Eye(2, 3, gocv.MatTypeCV32F)
	defer warp.Close()
	warp.SetFloatAt(0, 2, float32(dx))
	warp.SetFloatAt(1, 2, float32(dy))
	out := gocv.NewMat()
	gocv.WarpAffineWithParams(gray, &out, warp,
		image.Pt(gray.Cols(), gray.Rows()),
		gocv.InterpolationLinear, gocv.BorderReplicate, color.RGBA{})
	return out
}

// eccFit registers moving onto fixed with the requested motion model and
// the given ECC smoothing kernel, returning the fitted warp matrix. ok is
// false when the solver fails to converge or the correlation lands at or
// below minCC; the warp is then already released. Both inputs must be
// unit-range CV32F.
func eccFit(fixed, moving gocv.Mat, motionType, maxIter int, eps, minCC float64, gaussK int) (gocv.Mat, bool) {
	warp := gocv.Eye(2, 3, gocv.MatTypeCV32F)

	criteria := gocv.NewTermCriteria(gocv.Count+gocv.EPS, maxIter, eps)
	mask := gocv.NewMat()
	defer mask.Close()

	ecc := findECC(fixed, moving, &warp, motionType, criteria, mask, gaussK)
	if ecc <= minCC {
		warp.Close()
		return gocv.NewMat(), false
	}
	return warp, true
}

// applyWarp warps moving into the frame of a w x h fixed image.
func applyWarp(moving, warp gocv.Mat, w, h int) gocv.Mat {
	out := gocv.NewMat()
	gocv.WarpAffineWithParams(moving, &out, warp, image.Pt(w, h),
		gocv.InterpolationLinear+gocv.WarpInverseMap,
		gocv.BorderReplicate, color.RGBA{})
	return out
}

// findECC wraps the solver, which raises when the correlation degenerates;
// a failed fit reports as a non-positive score instead.
func findECC(fixed, moving gocv.Mat, warp *gocv.Mat, motionType int, criteria gocv.TermCriteria, mask gocv.Mat, gaussK int) (ecc float64) {
	defer func() {
		if recover() != nil {
			ecc = -1
		}
	}()
	return gocv.FindTransformECC(fixed, moving, warp, motionType, criteria, mask, gaussK)
}
