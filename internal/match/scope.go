package match

import "gocv.io/x/gocv"

// Scope memoizes per-query derived images for the duration of one match
// call. Verification compares the same query against a dozen candidates;
// its center crop, edge map, ink mask and float rendering only need
// computing once. Close releases everything it produced.
type Scope struct {
	query  *Descriptor
	prm    *Params
	center *gocv.Mat
	edges  *gocv.Mat
	ink    *gocv.Mat
	inkCov float64
	fgray  *gocv.Mat
}

func newScope(q *Descriptor, prm *Params) *Scope {
	return &Scope{query: q, prm: prm}
}

func (s *Scope) Center() gocv.Mat {
	if s.center == nil {
		c := cropCenter(s.query.Gray, s.prm.CenterFrac)
		s.center = &c
	}
	return *s.center
}

func (s *Scope) Edges() gocv.Mat {
	if s.edges == nil {
		e := sobelMag(s.query.Gray)
		s.edges = &e
	}
	return *s.edges
}

// Ink returns the query ink mask.
func (s *Scope) Ink() gocv.Mat {
	if s.ink == nil {
		m := inkMask(s.query.Gray)
		s.ink = &m
		s.inkCov = coverage(m)
	}
	return *s.ink
}

// InkCoverage returns the set fraction of the query ink mask.
func (s *Scope) InkCoverage() float64 {
	s.Ink()
	return s.inkCov
}

// Float returns the query gray as a unit-range CV32F mat for ECC fitting.
func (s *Scope) Float() gocv.Mat {
	if s.fgray == nil {
		f := normalizedFloat(s.query.Gray)
		s.fgray = &f
	}
	return *s.fgray
}

func (s *Scope) Close() {
	for _, m := range []**gocv.Mat{&s.center, &s.edges, &s.ink, &s.fgray} {
		if *m != nil {
			(*m).Close()
			*m = nil
		}
	}
}
