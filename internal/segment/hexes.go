package segment

import (
	"image"
	"math"
	"sort"

	"warscan/pkg/geometry"
	"warscan/pkg/profile"

	"gocv.io/x/gocv"
)

// columnSums returns per-column sums of a mask (255 per set pixel).
func columnSums(mask gocv.Mat) []float64 {
	dst := gocv.NewMat()
	defer dst.Close()
	gocv.Reduce(mask, &dst, 0, gocv.ReduceSum, gocv.MatTypeCV32F)
	out := make([]float64, dst.Cols())
	for x := range out {
		out[x] = float64(dst.GetFloatAt(0, x))
	}
	return out
}

// rowSums returns per-row sums of a mask (255 per set pixel).
func rowSums(mask gocv.Mat) []float64 {
	dst := gocv.NewMat()
	defer dst.Close()
	gocv.Reduce(mask, &dst, 1, gocv.ReduceSum, gocv.MatTypeCV32F)
	out := make([]float64, dst.Rows())
	for y := range out {
		out[y] = float64(dst.GetFloatAt(y, 0))
	}
	return out
}

// findScoreColumnX estimates the x of the central score column by the
// column-sum peak of the dark mask within the configured center band.
func findScoreColumnX(dark gocv.Mat, yr [2]float64, prm Params) int {
	h, w := dark.Rows(), dark.Cols()
	y1, y2 := yBounds(h, yr)
	band := dark.Region(image.Rect(0, y1, w, y2))
	defer band.Close()

	col := profile.SmoothGaussian(columnSums(band), max(5, int(0.01*float64(w))|1))
	x1 := geometry.Clip(int(prm.CenterBand[0]*float64(w)), 0, w-1)
	x2 := geometry.Clip(int(prm.CenterBand[1]*float64(w)), x1+1, w)
	best := x1
	for x := x1; x < x2 && x < len(col); x++ {
		if col[x] > col[best] {
			best = x
		}
	}
	return best
}

// detectHexes finds one marker box per combat row inside a working band
// centered on xMid, fusing contour-shape and energy-profile detections.
func detectHexes(dark, bright gocv.Mat, xMid int, yr [2]float64, prm Params) []geometry.RectInt {
	h, w := dark.Rows(), dark.Cols()
	dx := int(prm.WorkBandHalf * float64(w))
	x1 := geometry.Clip(xMid-dx, 0, w-1)
	x2 := geometry.Clip(xMid+dx, 0, w-1)
	y1, y2 := yBounds(h, yr)
	if x2 <= x1+1 || y2 <= y1+1 {
		return nil
	}

	darkBand := dark.Region(image.Rect(x1, y1, x2, y2))
	defer darkBand.Close()
	brightBand := bright.Region(image.Rect(x1, y1, x2, y2))
	defer brightBand.Close()
	union := gocv.NewMat()
	defer union.Close()
	gocv.BitwiseOr(darkBand, brightBand, &union)

	cntBoxes := detectByContours(union, x1, y1, w, h, prm)
	profBoxes := detectByProfile(union, xMid, w, y1, prm)

	if len(cntBoxes) == 0 {
		return clusterByY(profBoxes, prm)
	}

	near := func(c, p geometry.RectInt) bool {
		return math.Abs(p.CenterY()-c.CenterY()) <=
			math.Max(prm.FuseContourFrac*float64(c.Height), prm.FuseProfileFrac*float64(p.Height))
	}
	return clusterByY(fuseDetections(cntBoxes, profBoxes, near), prm)
}

// detectByContours gates external contours of the band by fractional height
// and aspect ratio, mapping survivors back to full-frame coordinates.
func detectByContours(bandUnion gocv.Mat, offX, offY, frameW, frameH int, prm Params) []geometry.RectInt {
	contours := gocv.FindContours(bandUnion, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	fh := float64(frameH)
	var cand []geometry.RectInt
	for i := 0; i < contours.Size(); i++ {
		r := gocv.BoundingRect(contours.At(i))
		bh := float64(r.Dy())
		if bh < prm.HexHeightRange[0]*fh || bh > prm.HexHeightRange[1]*fh {
			continue
		}
		ar := float64(r.Dx()) / (bh + 1e-6)
		if ar < prm.HexAspectRange[0] || ar > prm.HexAspectRange[1] {
			continue
		}
		box := geometry.RectInt{X: offX + r.Min.X, Y: offY + r.Min.Y, Width: r.Dx(), Height: r.Dy()}
		if box.CenterX() < 0 || box.CenterX() > float64(frameW-1) ||
			box.CenterY() < 0 || box.CenterY() > float64(frameH-1) {
			continue
		}
		cand = append(cand, box)
	}
	return clusterByY(cand, prm)
}

// detectByProfile picks row-like peaks of the band's horizontal energy
// profile, suppresses near-duplicates using the autocorrelation-estimated
// row spacing, and expands each peak to its padded half-maximum span.
func detectByProfile(bandUnion gocv.Mat, xMid, frameW, y1 int, prm Params) []geometry.RectInt {
	hBand := bandUnion.Rows()
	prof := profile.SmoothGaussian(rowSums(bandUnion), max(5, int(0.015*float64(hBand))|1))

	peak := 0.0
	for _, v := range prof {
		peak = math.Max(peak, v)
	}
	if peak < 1e-6 {
		return nil
	}
	thr := math.Max(prm.PeakMinFrac*peak, 2.0)

	minSep := max(6, int(0.025*float64(hBand)))
	estSep := profile.EstimateSpacing(prof, minSep, int(0.12*float64(hBand)), int(0.06*float64(hBand)))

	// Local maxima above threshold; peaks closer than half the estimated
	// spacing collapse into the stronger one.
	var peaks []int
	last := math.MinInt32
	for i := 1; i < len(prof)-1; i++ {
		if prof[i] <= thr || prof[i] < prof[i-1] || prof[i] < prof[i+1] {
			continue
		}
		if len(peaks) > 0 && i-last < estSep/2 {
			if prof[i] > prof[peaks[len(peaks)-1]] {
				peaks[len(peaks)-1] = i
				last = i
			}
			continue
		}
		peaks = append(peaks, i)
		last = i
	}

	wBox := max(6, int(0.006*float64(frameW)))
	boxes := make([]geometry.RectInt, 0, len(peaks))
	for _, p := range peaks {
		half := prof[p] * prm.RowFWHMFrac
		up := p
		for up+1 < len(prof) && prof[up+1] >= half {
			up++
		}
		dn := p
		for dn-1 >= 0 && prof[dn-1] >= half {
			dn--
		}
		pad := max(prm.RowMinPadPx, int(prm.RowExpandFrac*float64(up-dn+1)))
		dn = max(0, dn-pad)
		up = min(len(prof)-1, up+pad)
		boxes = append(boxes, geometry.RectInt{
			X:      xMid - wBox/2,
			Y:      y1 + dn,
			Width:  wBox,
			Height: max(1, up-dn+1),
		})
	}
	return boxes
}

// proximityFunc decides whether a profile box belongs to the same row as a
// contour box.
type proximityFunc func(contour, prof geometry.RectInt) bool

// fuseDetections reconciles the two detector outputs per row: two or more
// nearby profile boxes out-localize one coarse contour box, a single nearby
// profile box replaces the contour box, and a contour box with no profile
// support stands alone. Unmatched profile boxes are appended as-is.
func fuseDetections(contourBoxes, profileBoxes []geometry.RectInt, near proximityFunc) []geometry.RectInt {
	used := make([]bool, len(profileBoxes))
	merged := make([]geometry.RectInt, 0, len(contourBoxes)+len(profileBoxes))
	for _, bc := range contourBoxes {
		var idx []int
		for i, bp := range profileBoxes {
			if !used[i] && near(bc, bp) {
				idx = append(idx, i)
			}
		}
		switch {
		case len(idx) >= 2:
			for _, i := range idx {
				used[i] = true
				merged = append(merged, profileBoxes[i])
			}
		case len(idx) == 1:
			used[idx[0]] = true
			merged = append(merged, profileBoxes[idx[0]])
		default:
			merged = append(merged, bc)
		}
	}
	for i, bp := range profileBoxes {
		if !used[i] {
			merged = append(merged, bp)
		}
	}
	return merged
}

// clusterByY merges boxes into one per row. The gap threshold adapts to the
// median box height and median inter-row spacing; boxes that technically
// fall in the same cluster but barely overlap are still split into distinct
// rows. Each cluster collapses to its tallest member.
func clusterByY(boxes []geometry.RectInt, prm Params) []geometry.RectInt {
	if len(boxes) <= 1 {
		return boxes
	}
	sorted := make([]geometry.RectInt, len(boxes))
	copy(sorted, boxes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].CenterY() < sorted[j].CenterY() })

	heights := make([]float64, len(sorted))
	seps := make([]float64, 0, len(sorted)-1)
	for i, b := range sorted {
		heights[i] = float64(b.Height)
		if i > 0 {
			seps = append(seps, sorted[i].CenterY()-sorted[i-1].CenterY())
		}
	}
	medH := profile.Median(heights)
	medSep := medH * 1.1
	if len(seps) > 0 {
		medSep = profile.Median(seps)
	}
	thr := math.Max(prm.ClusterHFrac*medH, prm.ClusterSepFrac*medSep)

	out := []geometry.RectInt{sorted[0]}
	prevCY := sorted[0].CenterY()
	prev := sorted[0]
	for _, b := range sorted[1:] {
		cy := b.CenterY()
		newRow := cy-prevCY > thr
		if !newRow {
			overlap := geometry.VerticalOverlap(prev, b)
			if float64(overlap) < prm.SplitOverlap*float64(min(prev.Height, b.Height)) {
				newRow = true
			}
		}
		if newRow {
			out = append(out, b)
		} else if b.Height > out[len(out)-1].Height {
			out[len(out)-1] = b
		}
		prevCY = cy
		prev = b
	}
	return out
}

// refineMidColumn refines the mid column to the median of detected box
// centers, keeping the input when no boxes exist.
func refineMidColumn(xMid int, boxes []geometry.RectInt) int {
	if len(boxes) == 0 {
		return xMid
	}
	centers := make([]float64, len(boxes))
	for i, b := range boxes {
		centers[i] = b.CenterX()
	}
	return int(profile.Median(centers))
}
