// Package side classifies a row marker as friendly or enemy by its fill
// color.
package side

import (
	"math"

	"warscan/pkg/colorutil"

	"gocv.io/x/gocv"
)

type Side int

const (
	Friendly Side = iota
	Enemy
)

func (s Side) String() string {
	if s == Enemy {
		return "enemy"
	}
	return "friendly"
}

// Enemy markers are filled with this pink. Anything within MaxLabDist of it
// in Lab space counts as enemy.
var enemyFill = colorutil.MustParseHex("#de8da0")

const MaxLabDist = 25.0

// Classify decides the side of a marker crop. The crop is enemy when any
// single pixel sits within MaxLabDist of the enemy fill in Lab space, so a
// thin pink border on a mostly dark marker still reads as enemy.
func Classify(crop gocv.Mat) Side {
	if crop.Empty() {
		return Friendly
	}
	lab := gocv.NewMat()
	defer lab.Close()
	gocv.CvtColor(crop, &lab, gocv.ColorBGRToLab)
	labf := gocv.NewMat()
	defer labf.Close()
	lab.ConvertTo(&labf, gocv.MatTypeCV32FC3)

	want := labOf(float64(enemyFill.B), float64(enemyFill.G), float64(enemyFill.R))
	chans := gocv.Split(labf)
	dist2 := gocv.NewMatWithSize(labf.Rows(), labf.Cols(), gocv.MatTypeCV32F)
	defer dist2.Close()
	dist2.SetTo(gocv.NewScalar(0, 0, 0, 0))
	for i := range chans {
		chans[i].SubtractFloat(float32(want[i]))
		gocv.Multiply(chans[i], chans[i], &chans[i])
		gocv.Add(dist2, chans[i], &dist2)
		chans[i].Close()
	}

	hits := gocv.NewMat()
	defer hits.Close()
	gocv.Threshold(dist2, &hits, MaxLabDist*MaxLabDist, 255, gocv.ThresholdBinaryInv)
	if gocv.CountNonZero(hits) > 0 {
		return Enemy
	}
	return Friendly
}

// labOf converts one BGR color to 8-bit Lab through a 1x1 image.
func labOf(b, g, r float64) [3]float64 {
	px := gocv.NewMatWithSize(1, 1, gocv.MatTypeCV8UC3)
	defer px.Close()
	px.SetUCharAt(0, 0, uint8(clamp255(b)))
	px.SetUCharAt(0, 1, uint8(clamp255(g)))
	px.SetUCharAt(0, 2, uint8(clamp255(r)))

	lab := gocv.NewMat()
	defer lab.Close()
	gocv.CvtColor(px, &lab, gocv.ColorBGRToLab)
	return [3]float64{
		float64(lab.GetUCharAt(0, 0)),
		float64(lab.GetUCharAt(0, 1)),
		float64(lab.GetUCharAt(0, 2)),
	}
}

func clamp255(v float64) float64 {
	return math.Max(0, math.Min(255, v))
}
