package segment

// HueWindow is an inclusive HSV range used to isolate a characteristic color.
type HueWindow struct {
	LoH, LoS, LoV float64
	HiH, HiS, HiV float64
}

// Params configures the segmentation pipeline. All thresholds are fractions
// of the frame dimension they gate unless the name says pixels.
type Params struct {
	// Dialog ROI locator.
	DialogHues      []HueWindow // border color windows, unioned
	DialogCloseK    int         // rectangular close kernel side
	DialogCloseIter int
	DialogPadPx     int
	MinDialogWFrac  float64
	MinDialogHFrac  float64
	DialogMinExtent float64 // contour area / bbox area floor

	// Mask builder.
	DarkSatMax     float64 // HSV saturation ceiling for "dark"
	DarkValMax     float64 // HSV value ceiling for "dark"
	DarkChromaMax  float64 // Lab distance from neutral (128,128)
	DarkLightMax   float64 // Lab L ceiling
	DarkCloseFrac  float64 // elliptical close kernel as frac of min(H,W)
	NoiseAreaFrac  float64 // connected components below this frac of frame area are dropped
	BrightLightMin float64 // Lab L floor for bright digits
	BrightChroma   float64 // Lab chroma ceiling for bright digits
	WarmHues       []HueWindow
	TrimHCloseFrac float64 // wide horizontal close as frac of frame width

	// Row/hex detector.
	CenterBand      [2]float64 // x band searched for the score column
	WorkBandHalf    float64    // half-width of the working band around x mid
	ContentYRange   [2]float64
	FallbackYRange  [2]float64
	MinRows         int // fewer detections than this triggers the fallback range
	HexHeightRange  [2]float64
	HexAspectRange  [2]float64
	PeakMinFrac     float64 // profile peak threshold as frac of max
	RowFWHMFrac     float64 // half-maximum level for span expansion
	RowExpandFrac   float64
	RowMinPadPx     int
	FuseContourFrac float64 // fusion proximity as frac of contour height
	FuseProfileFrac float64 // fusion proximity as frac of profile height
	ClusterHFrac    float64 // cluster gap threshold as frac of median height
	ClusterSepFrac  float64 // cluster gap threshold as frac of median spacing
	SplitOverlap    float64 // boxes overlapping less than this stay distinct rows
	MidRefinePx     int     // median-center shift that triggers one redetection

	// Row slicer & trimmer.
	RowHeightGain   float64
	RowPadY         float64
	MidPadX         float64
	MinMidWFrac     float64
	MinMidWRow      float64
	LockMidToGlobal bool
	TrimSmoothK     int
	TrimPeakFrac    float64
	TrimAbsFracH    float64
	TrimGapPx       int
	TrimPadPx       int
	TrimMinWidth    int
	TrimGradFrac    float64 // gradient-energy fallback threshold as frac of peak
}

// DefaultParams returns the tuned defaults for dark-theme battle reports.
func DefaultParams() Params {
	return Params{
		DialogHues: []HueWindow{
			{LoH: 95, LoS: 60, LoV: 50, HiH: 125, HiS: 255, HiV: 255},
			{LoH: 100, LoS: 30, LoV: 120, HiH: 130, HiS: 180, HiV: 255},
		},
		DialogCloseK:    15,
		DialogCloseIter: 2,
		DialogPadPx:     12,
		MinDialogWFrac:  0.35,
		MinDialogHFrac:  0.30,
		DialogMinExtent: 0.65,

		DarkSatMax:     60,
		DarkValMax:     90,
		DarkChromaMax:  12,
		DarkLightMax:   110,
		DarkCloseFrac:  0.008,
		NoiseAreaFrac:  0.00003,
		BrightLightMin: 200,
		BrightChroma:   25,
		WarmHues: []HueWindow{
			{LoH: 0, LoS: 70, LoV: 80, HiH: 35, HiS: 255, HiV: 255},
			{LoH: 140, LoS: 60, LoV: 80, HiH: 179, HiS: 255, HiV: 255},
		},
		TrimHCloseFrac: 0.015,

		CenterBand:      [2]float64{0.35, 0.65},
		WorkBandHalf:    0.08,
		ContentYRange:   [2]float64{0.12, 0.92},
		FallbackYRange:  [2]float64{0.05, 0.98},
		MinRows:         12,
		HexHeightRange:  [2]float64{0.015, 0.06},
		HexAspectRange:  [2]float64{0.6, 2.2},
		PeakMinFrac:     0.22,
		RowFWHMFrac:     0.5,
		RowExpandFrac:   0.22,
		RowMinPadPx:     2,
		FuseContourFrac: 0.45,
		FuseProfileFrac: 0.35,
		ClusterHFrac:    0.38,
		ClusterSepFrac:  0.55,
		SplitOverlap:    0.15,
		MidRefinePx:     2,

		RowHeightGain:   1.06,
		RowPadY:         0.10,
		MidPadX:         0.02,
		MinMidWFrac:     0.055,
		MinMidWRow:      1.6,
		LockMidToGlobal: true,
		TrimSmoothK:     9,
		TrimPeakFrac:    0.12,
		TrimAbsFracH:    0.06,
		TrimGapPx:       6,
		TrimPadPx:       3,
		TrimMinWidth:    12,
		TrimGradFrac:    0.18,
	}
}
