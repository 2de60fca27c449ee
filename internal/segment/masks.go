package segment

import (
	"gocv.io/x/gocv"
)

func inRangeHue(hsv gocv.Mat, w HueWindow) gocv.Mat {
	out := gocv.NewMat()
	gocv.InRangeWithScalar(hsv,
		gocv.NewScalar(w.LoH, w.LoS, w.LoV, 0),
		gocv.NewScalar(w.HiH, w.HiS, w.HiV, 0),
		&out)
	return out
}

// maskDark marks dark/desaturated pixels: nickname text and the dark UI
// background. A pixel qualifies through HSV (low saturation and value) or
// Lab (near-neutral chroma and low lightness).
func maskDark(p *planes, prm Params) gocv.Mat {
	mHSV := gocv.NewMat()
	defer mHSV.Close()
	gocv.InRangeWithScalar(p.HSV,
		gocv.NewScalar(0, 0, 0, 0),
		gocv.NewScalar(179, prm.DarkSatMax, prm.DarkValMax, 0),
		&mHSV)

	c2 := chromaSq(p.A, p.B)
	defer c2.Close()
	mChroma32 := gocv.NewMat()
	defer mChroma32.Close()
	gocv.Threshold(c2, &mChroma32, float32(prm.DarkChromaMax*prm.DarkChromaMax), 255, gocv.ThresholdBinaryInv)
	mChroma := gocv.NewMat()
	defer mChroma.Close()
	mChroma32.ConvertTo(&mChroma, gocv.MatTypeCV8U)

	mLight := gocv.NewMat()
	defer mLight.Close()
	gocv.Threshold(p.L, &mLight, float32(prm.DarkLightMax), 255, gocv.ThresholdBinaryInv)

	m := gocv.NewMat()
	gocv.BitwiseAnd(mLight, mChroma, &m)
	gocv.BitwiseOr(mHSV, m, &m)

	h, w := m.Rows(), m.Cols()
	k := max(2, int(float64(min(h, w))*prm.DarkCloseFrac))
	gocv.MorphologyEx(m, &m, gocv.MorphClose, seEllipse(k))

	out := removeSmallComponents(m, int(prm.NoiseAreaFrac*float64(h*w)))
	m.Close()
	return out
}

// maskBrightDigits marks bright, low-chroma pixels: the white score digits.
func maskBrightDigits(p *planes, prm Params) gocv.Mat {
	mLight := gocv.NewMat()
	defer mLight.Close()
	gocv.Threshold(p.L, &mLight, float32(prm.BrightLightMin), 255, gocv.ThresholdBinary)

	c2 := chromaSq(p.A, p.B)
	defer c2.Close()
	mChroma32 := gocv.NewMat()
	defer mChroma32.Close()
	gocv.Threshold(c2, &mChroma32, float32(prm.BrightChroma*prm.BrightChroma), 255, gocv.ThresholdBinaryInv)
	mChroma := gocv.NewMat()
	defer mChroma.Close()
	mChroma32.ConvertTo(&mChroma, gocv.MatTypeCV8U)

	m := gocv.NewMat()
	gocv.BitwiseAnd(mLight, mChroma, &m)
	gocv.MorphologyEx(m, &m, gocv.MorphClose, seEllipse(3))
	return m
}

// maskTextForTrim is the consolidated text-like mask used for horizontal
// trimming: dark ∪ bright ∪ warm hues, closed with a small ellipse and then
// a wide horizontal rectangle to bridge inter-character gaps.
func maskTextForTrim(p *planes, dark, bright gocv.Mat, prm Params) gocv.Mat {
	union := gocv.NewMat()
	gocv.BitwiseOr(dark, bright, &union)
	for _, w := range prm.WarmHues {
		warm := inRangeHue(p.HSV, w)
		gocv.BitwiseOr(union, warm, &union)
		warm.Close()
	}

	gocv.MorphologyEx(union, &union, gocv.MorphClose, seEllipse(3))
	kx := max(3, int(float64(union.Cols())*prm.TrimHCloseFrac)|1)
	gocv.MorphologyEx(union, &union, gocv.MorphClose, seRect(kx, 1))
	return union
}

// removeSmallComponents drops 8-connected components below minArea pixels.
func removeSmallComponents(m gocv.Mat, minArea int) gocv.Mat {
	labels := gocv.NewMat()
	defer labels.Close()
	stats := gocv.NewMat()
	defer stats.Close()
	centroids := gocv.NewMat()
	defer centroids.Close()
	n := gocv.ConnectedComponentsWithStats(m, &labels, &stats, &centroids)

	keep := make([]bool, n)
	for i := 1; i < n; i++ {
		// stats column 4 is CC_STAT_AREA
		if int(stats.GetIntAt(i, 4)) >= minArea {
			keep[i] = true
		}
	}

	out := gocv.Zeros(m.Rows(), m.Cols(), gocv.MatTypeCV8U)
	for y := 0; y < m.Rows(); y++ {
		for x := 0; x < m.Cols(); x++ {
			if keep[labels.GetIntAt(y, x)] {
				out.SetUCharAt(y, x, 255)
			}
		}
	}
	return out
}
