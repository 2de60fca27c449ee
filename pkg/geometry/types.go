// Package geometry provides the rectangle and point primitives shared by the
// segmentation and matching pipelines.
package geometry

import "math"

// Point2D represents a 2D point with floating-point coordinates.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the Euclidean distance to another point.
func (p Point2D) Distance(other Point2D) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Magnitude returns the distance from the origin.
func (p Point2D) Magnitude() float64 {
	return math.Sqrt(p.X*p.X + p.Y*p.Y)
}

// RectInt represents an axis-aligned rectangle in integer pixel units.
type RectInt struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Empty reports whether the rectangle has no area.
func (r RectInt) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// CenterX returns the horizontal center.
func (r RectInt) CenterX() float64 {
	return float64(r.X) + float64(r.Width)/2
}

// CenterY returns the vertical center.
func (r RectInt) CenterY() float64 {
	return float64(r.Y) + float64(r.Height)/2
}

// Pad grows the rectangle by px on every side.
func (r RectInt) Pad(px int) RectInt {
	return RectInt{X: r.X - px, Y: r.Y - px, Width: r.Width + 2*px, Height: r.Height + 2*px}
}

// ClipTo clamps the rectangle to the frame [0,w)×[0,h), preserving as much
// of the original extent as fits.
func (r RectInt) ClipTo(w, h int) RectInt {
	x1 := Clip(r.X, 0, w-1)
	y1 := Clip(r.Y, 0, h-1)
	x2 := Clip(r.X+r.Width, 1, w)
	y2 := Clip(r.Y+r.Height, 1, h)
	return RectInt{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// VerticalOverlap returns the number of rows shared by two rectangles,
// negative when they are disjoint along Y.
func VerticalOverlap(a, b RectInt) int {
	top := max(a.Y, b.Y)
	bottom := min(a.Y+a.Height, b.Y+b.Height)
	return bottom - top
}

// Clip clamps an integer into [lo, hi].
func Clip(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
