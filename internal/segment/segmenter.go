package segment

import (
	"errors"
	"log/slog"
	"math"

	"warscan/pkg/geometry"

	"gocv.io/x/gocv"
)

var ErrEmptyFrame = errors.New("segment: empty frame")

// Segmenter slices a battle report frame into per-row crops. It is
// stateless; carry-over between frames of the same report travels through
// the Memory value the caller passes in and receives back.
type Segmenter struct {
	Params Params
	Log    *slog.Logger
}

func NewSegmenter(prm Params, log *slog.Logger) *Segmenter {
	if log == nil {
		log = slog.Default()
	}
	return &Segmenter{Params: prm, Log: log}
}

// Segment locates the dialog, detects the row markers and returns one
// RowSlice per row. Returned mats are owned by the caller; close each slice
// when done. The returned Memory carries the mid column position for the
// following frames of the same report.
func (s *Segmenter) Segment(frame gocv.Mat, mem Memory, dbg *DebugSink) ([]RowSlice, Memory, error) {
	if frame.Empty() {
		return nil, mem, ErrEmptyFrame
	}
	prm := s.Params

	roi, box := LocateDialog(frame, prm, dbg)
	if box != nil {
		defer roi.Close()
		s.Log.Debug("dialog located",
			"x", box.X, "y", box.Y, "w", box.Width, "h", box.Height)
	}
	w := roi.Cols()

	p := newPlanes(roi)
	defer p.Close()

	dark := maskDark(p, prm)
	defer dark.Close()
	bright := maskBrightDigits(p, prm)
	defer bright.Close()
	trimMask := maskTextForTrim(p, dark, bright, prm)
	defer trimMask.Close()
	dbg.SaveMask("mask_dark.png", dark)
	dbg.SaveMask("mask_bright.png", bright)
	dbg.SaveMask("mask_trim.png", trimMask)

	// Mid column and rows. With a remembered mid column the position is
	// trusted as-is; without one it is estimated from the mask and refined
	// against the markers actually found. Either way, a short page means the
	// content band was too tight for this layout, so detection reruns on the
	// wide fallback band.
	usedMemory := mem.Valid
	var xMid int
	var hexes []geometry.RectInt
	if usedMemory {
		xMid = geometry.Clip(int(mem.MidFrac*float64(w)), 0, w-1)
		hexes = detectHexes(dark, bright, xMid, prm.ContentYRange, prm)
		if len(hexes) < prm.MinRows {
			s.Log.Debug("too few rows, widening band", "found", len(hexes))
			hexes = detectHexes(dark, bright, xMid, prm.FallbackYRange, prm)
		}
	} else {
		xMid = findScoreColumnX(dark, prm.ContentYRange, prm)
		hexes = detectHexes(dark, bright, xMid, prm.ContentYRange, prm)

		if refined := refineMidColumn(xMid, hexes); absInt(refined-xMid) > prm.MidRefinePx {
			s.Log.Debug("mid column refined", "from", xMid, "to", refined)
			xMid = refined
			hexes = detectHexes(dark, bright, xMid, prm.ContentYRange, prm)
		}

		if len(hexes) < prm.MinRows {
			s.Log.Debug("too few rows, widening band", "found", len(hexes))
			xMid = findScoreColumnX(dark, prm.FallbackYRange, prm)
			hexes = detectHexes(dark, bright, xMid, prm.FallbackYRange, prm)
			if len(hexes) > 0 {
				xMid = refineMidColumn(xMid, hexes)
				hexes = detectHexes(dark, bright, xMid, prm.FallbackYRange, prm)
			}
		}
	}

	fixedMidW := 0
	if usedMemory && mem.MidWidthFrac > 0 {
		fixedMidW = int(mem.MidWidthFrac * float64(w))
	}
	rows := sliceRows(roi, hexes, trimMask, p.Grad, xMid, fixedMidW, prm)

	if dbg != nil {
		bx1 := geometry.Clip(int(float64(xMid)-prm.WorkBandHalf*float64(w)), 0, w-1)
		bx2 := geometry.Clip(int(float64(xMid)+prm.WorkBandHalf*float64(w)), 0, w-1)
		dbg.SaveOverview(roi, bx1, bx2, xMid, hexes, rows)
	}

	if !usedMemory && len(rows) > 0 {
		mem.MidFrac = float64(xMid) / float64(w)
		mw := rows[0].MidBounds[1] - rows[0].MidBounds[0]
		mem.MidWidthFrac = float64(mw) / float64(w)
		mem.Valid = true
	}
	s.Log.Info("frame segmented", "rows", len(rows), "mid_x", xMid)
	return rows, mem, nil
}

// Session wraps a Segmenter with the Memory of one report, for callers
// feeding consecutive frames.
type Session struct {
	seg *Segmenter
	mem Memory
}

func NewSession(seg *Segmenter) *Session {
	return &Session{seg: seg}
}

func (s *Session) Segment(frame gocv.Mat, dbg *DebugSink) ([]RowSlice, error) {
	rows, mem, err := s.seg.Segment(frame, s.mem, dbg)
	s.mem = mem
	return rows, err
}

// Reset drops the remembered layout. Call it between reports.
func (s *Session) Reset() {
	s.mem.Reset()
}

func absInt(v int) int {
	return int(math.Abs(float64(v)))
}
