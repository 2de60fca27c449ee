// Package match resolves row crops to known identities. Candidates are
// shortlisted by perceptual hash and ink column profile, then verified by a
// tiered alignment pipeline that escalates from a plain NCC check through
// translation-only and full affine registration.
package match

import "gocv.io/x/gocv"

// TierSpec describes one escalation tier of the verifier: which rotations
// and blur kernels to try, and which ECC motion models to fit. Motion values
// are the gocv Motion* constants.
type TierSpec struct {
	Rotations []float64
	GaussK    []int
	Motions   []int
}

type Params struct {
	// Acceptance thresholds on normalized cross correlation.
	NCCThr       float64 // full-image NCC
	NCCCenterThr float64 // center-crop NCC
	EdgeNCCThr   float64 // NCC of gradient magnitudes
	CenterFrac   float64 // center crop fraction per axis
	MaxShift     int     // phase correlation shift accepted as pure translation
	ECCCCMin     float64 // minimum ECC correlation to trust a fitted warp
	Tier1        TierSpec
	Tier2        TierSpec
	ECCMaxIter   int
	ECCEps       float64

	// Text similarity gates applied alongside NCC.
	InkIoUThr         float64
	ProfileCosThr     float64
	ProfileShiftedThr float64
	CoverageDeltaMax  float64
	ShiftSearch       int

	// Fast-reject gate: candidates scoring below both bounds on the cheap
	// metrics skip verification entirely. After a tier 1 miss, only
	// candidates at or above one of the tier-up bounds escalate to tier 2.
	FastReject    bool
	FRCenterMin   float64
	FRProfileMin  float64
	TierUpCenter  float64
	TierUpProfile float64

	// Shortlisting.
	TopKHash    int
	TopKProf    int
	MaxCand     int
	MaxWDiff    int
	UseARFilter bool
	MaxARDiff   float64

	// Cache bounds.
	ImageCacheLimit   int
	DescCacheLimit    int
	RotCacheLimit     int
	VerdictCacheLimit int
}

func DefaultParams() Params {
	return Params{
		NCCThr:       0.82,
		NCCCenterThr: 0.86,
		EdgeNCCThr:   0.70,
		CenterFrac:   0.9,
		MaxShift:     10,
		ECCCCMin:     0,
		Tier1: TierSpec{
			Rotations: []float64{0},
			GaussK:    []int{5},
			Motions:   []int{gocv.MotionEuclidean},
		},
		Tier2: TierSpec{
			Rotations: []float64{-2, 0, 2},
			GaussK:    []int{3, 5, 7},
			Motions:   []int{gocv.MotionEuclidean, gocv.MotionAffine},
		},
		ECCMaxIter: 200,
		ECCEps:     1e-5,

		InkIoUThr:         0.76,
		ProfileCosThr:     0.93,
		ProfileShiftedThr: 0.99,
		CoverageDeltaMax:  0.06,
		ShiftSearch:       40,

		FastReject:    true,
		FRCenterMin:   0.55,
		FRProfileMin:  0.80,
		TierUpCenter:  0.70,
		TierUpProfile: 0.90,

		TopKHash:    8,
		TopKProf:    8,
		MaxCand:     12,
		MaxWDiff:    60,
		UseARFilter: true,
		MaxARDiff:   0.35,

		ImageCacheLimit:   256,
		DescCacheLimit:    1024,
		RotCacheLimit:     512,
		VerdictCacheLimit: 8192,
	}
}
