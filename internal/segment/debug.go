package segment

import (
	"fmt"
	"image"
	"log/slog"
	"path/filepath"

	"warscan/pkg/colorutil"
	"warscan/pkg/geometry"

	"gocv.io/x/gocv"
)

// DebugSink writes intermediate masks and an annotated overview image to a
// directory. A nil sink is valid and drops everything, so callers never have
// to guard their save calls. Writes are best effort and only logged.
type DebugSink struct {
	Dir string
	Log *slog.Logger
}

func NewDebugSink(dir string, log *slog.Logger) *DebugSink {
	if dir == "" {
		return nil
	}
	if log == nil {
		log = slog.Default()
	}
	return &DebugSink{Dir: dir, Log: log}
}

// SaveMask writes a mask or any other single image under the sink directory.
func (d *DebugSink) SaveMask(name string, m gocv.Mat) {
	if d == nil || m.Empty() {
		return
	}
	path := filepath.Join(d.Dir, name)
	if ok := gocv.IMWrite(path, m); !ok {
		d.Log.Warn("debug image write failed", "path", path)
	}
}

// SaveOverview draws the detected structure on a copy of the dialog ROI:
// work band edges, mid column bounds, marker boxes and numbered row windows.
func (d *DebugSink) SaveOverview(roi gocv.Mat, x1, x2, xMid int, hexes []geometry.RectInt, rows []RowSlice) {
	if d == nil || roi.Empty() {
		return
	}
	vis := roi.Clone()
	defer vis.Close()

	h := vis.Rows()
	gocv.Line(&vis, image.Pt(x1, 0), image.Pt(x1, h), colorutil.Amber, 1)
	gocv.Line(&vis, image.Pt(x2, 0), image.Pt(x2, h), colorutil.Amber, 1)
	if xMid >= 0 {
		gocv.Line(&vis, image.Pt(xMid, 0), image.Pt(xMid, h), colorutil.Red, 1)
	}

	for _, b := range hexes {
		gocv.Rectangle(&vis, image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height), colorutil.Green, 1)
	}

	rowCol := colorutil.Blue
	midCol := colorutil.Magenta
	for i, r := range rows {
		gocv.Rectangle(&vis, image.Rect(0, r.Bounds[0], vis.Cols(), r.Bounds[1]), rowCol, 1)
		gocv.Rectangle(&vis, image.Rect(r.MidBounds[0], r.Bounds[0], r.MidBounds[1], r.Bounds[1]), midCol, 1)
		gocv.PutText(&vis, fmt.Sprintf("%d", i),
			image.Pt(4, r.Bounds[0]+12), gocv.FontHersheySimplex, 0.4, rowCol, 1)
	}

	d.SaveMask("overview.png", vis)
}
