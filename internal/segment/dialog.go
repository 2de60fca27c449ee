package segment

import (
	"warscan/pkg/geometry"

	"gocv.io/x/gocv"
)

// LocateDialog finds the report dialog by its characteristic border color
// and returns a padded ROI around it. When nothing dialog-like is found the
// original frame is returned with a nil box — a degraded but valid result
// the rest of the pipeline must tolerate.
//
// The returned Mat is a view into frame when bbox is nil, otherwise a region
// the caller must Close before frame.
func LocateDialog(frame gocv.Mat, prm Params, dbg *DebugSink) (gocv.Mat, *geometry.RectInt) {
	h, w := frame.Rows(), frame.Cols()

	hsv := hsvOf(frame)
	defer hsv.Close()
	mask := gocv.Zeros(h, w, gocv.MatTypeCV8U)
	defer mask.Close()
	for _, hw := range prm.DialogHues {
		m := inRangeHue(hsv, hw)
		gocv.BitwiseOr(mask, m, &mask)
		m.Close()
	}
	k := seRect(prm.DialogCloseK, prm.DialogCloseK)
	for i := 0; i < prm.DialogCloseIter; i++ {
		gocv.MorphologyEx(mask, &mask, gocv.MorphClose, k)
	}

	dbg.SaveMask("dialog_mask.png", mask)

	box := largestReasonableBox(mask, w, h, prm)
	if box == nil {
		return frame, nil
	}

	padded := box.Pad(prm.DialogPadPx).ClipTo(w, h)
	roi := frame.Region(rectOf(padded))
	return roi, &padded
}

// hsvOf converts one frame to HSV. Dialog search runs on the full frame
// before the ROI planes exist, so it owns its own conversion.
func hsvOf(bgr gocv.Mat) gocv.Mat {
	hsv := gocv.NewMat()
	gocv.CvtColor(bgr, &hsv, gocv.ColorBGRToHSV)
	return hsv
}

// largestReasonableBox keeps external contours that are large enough and
// filled enough to be a dialog, then picks the one with the greatest contour
// area. The extent gate rejects thin or ragged shapes whose bounding box is
// mostly empty.
func largestReasonableBox(mask gocv.Mat, w, h int, prm Params) *geometry.RectInt {
	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	minW := int(prm.MinDialogWFrac * float64(w))
	minH := int(prm.MinDialogHFrac * float64(h))

	var best *geometry.RectInt
	bestArea := -1.0
	for i := 0; i < contours.Size(); i++ {
		c := contours.At(i)
		r := gocv.BoundingRect(c)
		if r.Dx() < minW || r.Dy() < minH {
			continue
		}
		boxArea := float64(r.Dx() * r.Dy())
		if boxArea <= 1 {
			continue
		}
		cntArea := gocv.ContourArea(c)
		if cntArea/boxArea < prm.DialogMinExtent {
			continue
		}
		if cntArea > bestArea {
			bestArea = cntArea
			best = &geometry.RectInt{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
		}
	}
	return best
}
