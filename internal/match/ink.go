package match

import (
	"image"

	"warscan/pkg/profile"

	"gocv.io/x/gocv"
)

// inkMask binarizes text ink on a canonical grayscale image. A light 3x3
// blur knocks down dither before thresholding. Otsu handles clean rows;
// intersecting with a local adaptive threshold keeps gradients and glow from
// leaking into the mask. Small specks are cleaned with a 2x2 open and the
// strokes re-joined with a 2x2 close.
func inkMask(gray gocv.Mat) gocv.Mat {
	soft := gocv.NewMat()
	defer soft.Close()
	gocv.GaussianBlur(gray, &soft, image.Pt(3, 3), 0, 0, gocv.BorderDefault)

	otsu := gocv.NewMat()
	gocv.Threshold(soft, &otsu, 0, 255, gocv.ThresholdBinaryInv|gocv.ThresholdOtsu)
	adap := gocv.NewMat()
	gocv.AdaptiveThreshold(soft, &adap, 255,
		gocv.AdaptiveThresholdGaussian, gocv.ThresholdBinaryInv, 21, 8)

	ink := gocv.NewMat()
	gocv.BitwiseAnd(otsu, adap, &ink)
	otsu.Close()
	adap.Close()

	k := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(2, 2))
	defer k.Close()
	gocv.MorphologyEx(ink, &ink, gocv.MorphOpen, k)
	gocv.MorphologyEx(ink, &ink, gocv.MorphClose, k)
	return ink
}

// maskIoU measures overlap of two ink masks after dilating each with a
// 1x3 horizontal kernel, which forgives single-pixel horizontal jitter.
func maskIoU(a, b gocv.Mat) float64 {
	k := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(3, 1))
	defer k.Close()
	da := gocv.NewMat()
	defer da.Close()
	db := gocv.NewMat()
	defer db.Close()
	gocv.Dilate(a, &da, k)
	gocv.Dilate(b, &db, k)

	inter := gocv.NewMat()
	defer inter.Close()
	union := gocv.NewMat()
	defer union.Close()
	gocv.BitwiseAnd(da, db, &inter)
	gocv.BitwiseOr(da, db, &union)

	u := gocv.CountNonZero(union)
	if u == 0 {
		return 0
	}
	return float64(gocv.CountNonZero(inter)) / float64(u)
}

// coverage is the fraction of mask pixels set.
func coverage(mask gocv.Mat) float64 {
	n := mask.Rows() * mask.Cols()
	if n == 0 {
		return 0
	}
	return float64(gocv.CountNonZero(mask)) / float64(n)
}

// columnProfile reduces an ink mask to an L2-normalized vector of per-column
// ink counts.
func columnProfile(mask gocv.Mat) []float64 {
	sums := gocv.NewMat()
	defer sums.Close()
	gocv.Reduce(mask, &sums, 0, gocv.ReduceSum, gocv.MatTypeCV32F)

	out := make([]float64, sums.Cols())
	for x := 0; x < sums.Cols(); x++ {
		out[x] = float64(sums.GetFloatAt(0, x)) / 255.0
	}
	return profile.Normalize(out)
}
