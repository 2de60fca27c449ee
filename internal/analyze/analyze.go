// Package analyze runs the full screenshot pipeline: locate the dialog,
// slice rows, read scores and resolve player identities.
package analyze

import (
	"fmt"
	"image"
	"log/slog"
	"time"

	"warscan/internal/imageio"
	"warscan/internal/match"
	"warscan/internal/ocr"
	"warscan/internal/segment"
	"warscan/internal/side"

	"warscan/pkg/geometry"

	"gocv.io/x/gocv"
)

// Row is the analysis result for one battle report row.
type Row struct {
	Index    int    `json:"index"`
	Side     string `json:"side"`
	Score    int    `json:"score"`
	ScoreOK  bool   `json:"score_ok"`
	LeftID   int64  `json:"left_id"`
	LeftNew  bool   `json:"left_new"`
	RightID  int64  `json:"right_id"`
	RightNew bool   `json:"right_new"`
}

// Report is the analysis result for one frame.
type Report struct {
	Source  string        `json:"source,omitempty"`
	Rows    []Row         `json:"rows"`
	Elapsed time.Duration `json:"elapsed_ns"`
}

// Analyzer wires the pipeline stages. OCR is optional; without it rows
// carry no score.
type Analyzer struct {
	Segmenter *segment.Segmenter
	Matcher   *match.Matcher
	Library   *match.Library
	OCR       *ocr.Engine
	Log       *slog.Logger
}

func New(seg *segment.Segmenter, m *match.Matcher, lib *match.Library, eng *ocr.Engine, log *slog.Logger) *Analyzer {
	if log == nil {
		log = slog.Default()
	}
	return &Analyzer{Segmenter: seg, Matcher: m, Library: lib, OCR: eng, Log: log}
}

// AnalyzeFile loads and analyzes one screenshot.
func (a *Analyzer) AnalyzeFile(path string, mem segment.Memory, dbg *segment.DebugSink) (*Report, segment.Memory, error) {
	frame, err := imageio.Load(path)
	if err != nil {
		return nil, mem, err
	}
	defer frame.Close()
	rep, mem, err := a.AnalyzeFrame(frame, mem, dbg)
	if rep != nil {
		rep.Source = path
	}
	return rep, mem, err
}

// AnalyzeFrame analyzes one decoded frame. The Memory value carries dialog
// layout between consecutive frames of the same report.
func (a *Analyzer) AnalyzeFrame(frame gocv.Mat, mem segment.Memory, dbg *segment.DebugSink) (*Report, segment.Memory, error) {
	start := time.Now()

	rows, mem, err := a.Segmenter.Segment(frame, mem, dbg)
	if err != nil {
		return nil, mem, fmt.Errorf("segment: %w", err)
	}
	defer func() {
		for i := range rows {
			rows[i].Close()
		}
	}()

	rep := &Report{Rows: make([]Row, 0, len(rows))}
	for i := range rows {
		r, err := a.analyzeRow(i, &rows[i])
		if err != nil {
			a.Log.Warn("row analysis failed", "row", i, "err", err)
			continue
		}
		rep.Rows = append(rep.Rows, r)
	}
	rep.Elapsed = time.Since(start)
	return rep, mem, nil
}

func (a *Analyzer) analyzeRow(idx int, rs *segment.RowSlice) (Row, error) {
	row := Row{Index: idx, LeftID: -1, RightID: -1}

	marker := hexCrop(rs)
	if !marker.Empty() {
		row.Side = side.Classify(marker).String()
	}
	marker.Close()

	if a.OCR != nil && !rs.Mid.Empty() {
		if score, ok, err := a.OCR.ReadScore(rs.Mid); err == nil && ok {
			row.Score = score
			row.ScoreOK = true
		}
	}

	if !rs.Left.Empty() {
		id, existed, err := a.Matcher.MatchOrNew(rs.Left, a.Library)
		if err != nil {
			return row, fmt.Errorf("left: %w", err)
		}
		row.LeftID = id
		row.LeftNew = !existed
	}
	if !rs.Right.Empty() {
		id, existed, err := a.Matcher.MatchOrNew(rs.Right, a.Library)
		if err != nil {
			return row, fmt.Errorf("right: %w", err)
		}
		row.RightID = id
		row.RightNew = !existed
	}
	return row, nil
}

// hexCrop cuts the row marker out of the row image, translating its ROI
// coordinates into the row window.
func hexCrop(rs *segment.RowSlice) gocv.Mat {
	h, w := rs.Row.Rows(), rs.Row.Cols()
	b := geometry.RectInt{
		X:      rs.Hex.X,
		Y:      rs.Hex.Y - rs.Bounds[0],
		Width:  rs.Hex.Width,
		Height: rs.Hex.Height,
	}.ClipTo(w, h)
	if b.Empty() {
		return gocv.NewMat()
	}
	r := rs.Row.Region(image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height))
	defer r.Close()
	return r.Clone()
}
