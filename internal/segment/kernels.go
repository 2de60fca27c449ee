package segment

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// Morphological kernels are requested with the same handful of shapes on
// every frame; building them once avoids a native allocation per call.
// Cached kernels are shared and must never be closed by callers.

type kernelKey struct {
	shape gocv.MorphShape
	w, h  int
}

var (
	kernelMu    sync.Mutex
	kernelCache = map[kernelKey]gocv.Mat{}
)

func structuringElement(shape gocv.MorphShape, w, h int) gocv.Mat {
	key := kernelKey{shape: shape, w: w, h: h}
	kernelMu.Lock()
	defer kernelMu.Unlock()
	if se, ok := kernelCache[key]; ok {
		return se
	}
	se := gocv.GetStructuringElement(shape, image.Pt(w, h))
	kernelCache[key] = se
	return se
}

// seEllipse returns a cached k×k elliptical structuring element.
func seEllipse(k int) gocv.Mat {
	return structuringElement(gocv.MorphEllipse, k, k)
}

// seRect returns a cached w×h rectangular structuring element.
func seRect(w, h int) gocv.Mat {
	return structuringElement(gocv.MorphRect, w, h)
}
