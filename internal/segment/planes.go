package segment

import (
	"gocv.io/x/gocv"
)

// planes holds the color-space views shared by every mask and detector in a
// single segmentation call, so each conversion runs once per frame.
type planes struct {
	HSV  gocv.Mat
	Lab  gocv.Mat
	L    gocv.Mat // Lab lightness channel
	A    gocv.Mat // Lab a channel
	B    gocv.Mat // Lab b channel
	Gray gocv.Mat
	Grad gocv.Mat // Sobel magnitude, CV32F
}

func newPlanes(bgr gocv.Mat) *planes {
	p := &planes{
		HSV:  gocv.NewMat(),
		Lab:  gocv.NewMat(),
		Gray: gocv.NewMat(),
		Grad: gocv.NewMat(),
	}
	gocv.CvtColor(bgr, &p.HSV, gocv.ColorBGRToHSV)
	gocv.CvtColor(bgr, &p.Lab, gocv.ColorBGRToLab)
	ch := gocv.Split(p.Lab)
	p.L, p.A, p.B = ch[0], ch[1], ch[2]

	gocv.CvtColor(bgr, &p.Gray, gocv.ColorBGRToGray)
	gx := gocv.NewMat()
	defer gx.Close()
	gy := gocv.NewMat()
	defer gy.Close()
	gocv.Sobel(p.Gray, &gx, gocv.MatTypeCV32F, 1, 0, 3, 1, 0, gocv.BorderDefault)
	gocv.Sobel(p.Gray, &gy, gocv.MatTypeCV32F, 0, 1, 3, 1, 0, gocv.BorderDefault)
	gocv.Magnitude(gx, gy, &p.Grad)
	return p
}

func (p *planes) Close() {
	for _, m := range []*gocv.Mat{&p.HSV, &p.Lab, &p.L, &p.A, &p.B, &p.Gray, &p.Grad} {
		if !m.Empty() {
			m.Close()
		}
	}
}

// chromaSq returns the squared Lab chroma distance from neutral (128,128)
// as a CV32F mat.
func chromaSq(a, b gocv.Mat) gocv.Mat {
	da := gocv.NewMat()
	defer da.Close()
	db := gocv.NewMat()
	defer db.Close()
	a.ConvertTo(&da, gocv.MatTypeCV32F)
	b.ConvertTo(&db, gocv.MatTypeCV32F)
	da.SubtractFloat(128)
	db.SubtractFloat(128)

	da2 := gocv.NewMat()
	defer da2.Close()
	db2 := gocv.NewMat()
	defer db2.Close()
	gocv.Multiply(da, da, &da2)
	gocv.Multiply(db, db, &db2)

	out := gocv.NewMat()
	gocv.Add(da2, db2, &out)
	return out
}
