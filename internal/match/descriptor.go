package match

import (
	"fmt"
	"image"
	"math/bits"

	"github.com/corona10/goimagehash"
	"gocv.io/x/gocv"
)

// Canonical descriptor size. Row crops vary in width, so everything is
// compared on a fixed-size grayscale rendering.
const (
	CanonW = 256
	CanonH = 64
)

// Descriptor holds the cheap per-image features used for shortlisting and
// fast rejection. Gray is the canonical grayscale rendering and is owned by
// the descriptor; Close it when evicted.
type Descriptor struct {
	Hash    uint64
	Profile []float64
	Width   int
	Height  int
	Gray    gocv.Mat
}

func (d *Descriptor) Close() {
	if d != nil && !d.Gray.Empty() {
		d.Gray.Close()
	}
}

// Clone returns an independent copy the caller owns. Candidates hold clones
// so a cache sweep cannot release a descriptor still in flight.
func (d *Descriptor) Clone() *Descriptor {
	prof := make([]float64, len(d.Profile))
	copy(prof, d.Profile)
	return &Descriptor{
		Hash:    d.Hash,
		Profile: prof,
		Width:   d.Width,
		Height:  d.Height,
		Gray:    d.Gray.Clone(),
	}
}

func (d *Descriptor) Aspect() float64 {
	if d.Height == 0 {
		return 0
	}
	return float64(d.Width) / float64(d.Height)
}

// resizeGray renders any image to single-channel canonical size.
func resizeGray(src gocv.Mat, w, h int) gocv.Mat {
	var gray gocv.Mat
	if src.Channels() > 1 {
		gray = gocv.NewMat()
		gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)
	} else {
		gray = src.Clone()
	}
	out := gocv.NewMat()
	gocv.Resize(gray, &out, image.Pt(w, h), 0, 0, gocv.InterpolationArea)
	gray.Close()
	return out
}

// hash64 computes the difference hash of a grayscale mat.
func hash64(gray gocv.Mat) (uint64, error) {
	img, err := gray.ToImage()
	if err != nil {
		return 0, fmt.Errorf("hash: %w", err)
	}
	h, err := goimagehash.DifferenceHash(img)
	if err != nil {
		return 0, fmt.Errorf("hash: %w", err)
	}
	return h.GetHash(), nil
}

func hammingDistance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// NewDescriptor builds the descriptor for a raw crop.
func NewDescriptor(crop gocv.Mat) (*Descriptor, error) {
	if crop.Empty() {
		return nil, fmt.Errorf("descriptor: empty image")
	}
	gray := resizeGray(crop, CanonW, CanonH)
	h, err := hash64(gray)
	if err != nil {
		gray.Close()
		return nil, err
	}
	ink := inkMask(gray)
	prof := columnProfile(ink)
	ink.Close()
	return &Descriptor{
		Hash:    h,
		Profile: prof,
		Width:   crop.Cols(),
		Height:  crop.Rows(),
		Gray:    gray,
	}, nil
}
