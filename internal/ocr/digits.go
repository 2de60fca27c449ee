// Package ocr reads the numeric score from a mid-column crop.
package ocr

import (
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"

	"github.com/otiai10/gosseract/v2"
	"gocv.io/x/gocv"
)

// DigitChars restricts recognition to score digits.
const DigitChars = "0123456789"

// Scores outside this range are misreads, not game values.
const (
	ScoreMin = 0
	ScoreMax = 80
)

// Engine reads scores with Tesseract. Not safe for concurrent use; the
// underlying client holds per-call state.
type Engine struct {
	client *gosseract.Client
}

func NewEngine() (*Engine, error) {
	client := gosseract.NewClient()
	if err := client.SetLanguage("eng"); err != nil {
		client.Close()
		return nil, fmt.Errorf("ocr: set language: %w", err)
	}

	// Scores are not words; dictionary correction only hurts.
	_ = client.SetVariable("load_system_dawg", "false")
	_ = client.SetVariable("load_freq_dawg", "false")
	_ = client.SetVariable("classify_bln_numeric_mode", "1")

	return &Engine{client: client}, nil
}

func (e *Engine) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

// substitutions repairs the confusions Tesseract makes on stylized digits
// even with a whitelist set.
var substitutions = strings.NewReplacer(
	"O", "0", "o", "0", "D", "0", "Q", "0",
	"I", "1", "l", "1", "|", "1",
	"Z", "2",
	"S", "5", "s", "5",
	"G", "6", "b", "6",
	"B", "8",
	"g", "9", "q", "9",
)

// ReadScore recognizes the score shown in a crop. Each preprocessing
// variant votes for the value it reads; ok is false when no variant
// produces a value in range.
func (e *Engine) ReadScore(crop gocv.Mat) (int, bool, error) {
	if crop.Empty() {
		return 0, false, fmt.Errorf("ocr: empty crop")
	}

	votes := map[int]float64{}
	var firstErr error
	for _, v := range variants(crop) {
		score, conf, err := e.readVariant(v.mat)
		v.mat.Close()
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if score < ScoreMin || score > ScoreMax {
			continue
		}
		votes[score] += v.weight * conf
	}

	if len(votes) == 0 {
		return 0, false, firstErr
	}
	best, bestW := 0, -1.0
	for s, w := range votes {
		if w > bestW {
			best, bestW = s, w
		}
	}
	return best, true, nil
}

func (e *Engine) readVariant(m gocv.Mat) (int, float64, error) {
	buf, err := gocv.IMEncode(gocv.PNGFileExt, m)
	if err != nil {
		return 0, 0, fmt.Errorf("ocr: encode: %w", err)
	}
	defer buf.Close()

	if err := e.client.SetPageSegMode(gosseract.PSM_SINGLE_LINE); err != nil {
		return 0, 0, fmt.Errorf("ocr: set psm: %w", err)
	}
	if err := e.client.SetWhitelist(DigitChars); err != nil {
		return 0, 0, fmt.Errorf("ocr: set whitelist: %w", err)
	}
	if err := e.client.SetImageFromBytes(buf.GetBytes()); err != nil {
		return 0, 0, fmt.Errorf("ocr: set image: %w", err)
	}

	text, err := e.client.Text()
	if err != nil {
		return 0, 0, fmt.Errorf("ocr: %w", err)
	}
	score, ok := ParseScore(text)
	if !ok {
		return 0, 0, fmt.Errorf("ocr: no digits in %q", text)
	}

	conf := 1.0
	if boxes, err := e.client.GetBoundingBoxes(gosseract.RIL_WORD); err == nil && len(boxes) > 0 {
		conf = boxes[0].Confidence / 100.0
	}
	return score, conf, nil
}

// ParseScore extracts the score value from raw OCR text, repairing the
// usual digit confusions first.
func ParseScore(text string) (int, bool) {
	text = substitutions.Replace(strings.TrimSpace(text))
	var digits strings.Builder
	for _, r := range text {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(digits.String())
	if err != nil {
		return 0, false
	}
	return n, true
}

type variant struct {
	mat    gocv.Mat
	weight float64
}

// variants renders the crop in several contrast treatments. Dialog digits
// sit on a noisy painted background; no single binarization wins on every
// frame, so all of them get a vote.
func variants(crop gocv.Mat) []variant {
	base := upscaled(crop)

	otsu := gocv.NewMat()
	gocv.Threshold(base, &otsu, 0, 255, gocv.ThresholdBinary|gocv.ThresholdOtsu)

	inverted := gocv.NewMat()
	gocv.BitwiseNot(otsu, &inverted)

	clahe := gocv.NewCLAHEWithParams(2.0, image.Point{X: 8, Y: 8})
	enhanced := gocv.NewMat()
	clahe.Apply(base, &enhanced)
	clahe.Close()
	claheOtsu := gocv.NewMat()
	gocv.Threshold(enhanced, &claheOtsu, 0, 255, gocv.ThresholdBinary|gocv.ThresholdOtsu)
	enhanced.Close()

	adap := gocv.NewMat()
	gocv.AdaptiveThreshold(base, &adap, 255,
		gocv.AdaptiveThresholdGaussian, gocv.ThresholdBinary, 31, 10)

	return []variant{
		{mat: base, weight: 1.0},
		{mat: claheOtsu, weight: 1.5},
		{mat: otsu, weight: 1.2},
		{mat: inverted, weight: 1.0},
		{mat: adap, weight: 0.8},
	}
}

// upscaled smooths and enlarges the crop, then pads it so strokes do not
// touch the image edge.
func upscaled(crop gocv.Mat) gocv.Mat {
	var gray gocv.Mat
	if crop.Channels() > 1 {
		gray = gocv.NewMat()
		gocv.CvtColor(crop, &gray, gocv.ColorBGRToGray)
	} else {
		gray = crop.Clone()
	}

	smooth := gocv.NewMat()
	gocv.BilateralFilter(gray, &smooth, 5, 50, 50)
	gray.Close()

	big := gocv.NewMat()
	gocv.Resize(smooth, &big, image.Point{}, 2.0, 2.0, gocv.InterpolationCubic)
	smooth.Close()

	padded := gocv.NewMat()
	gocv.CopyMakeBorder(big, &padded, 8, 8, 8, 8, gocv.BorderConstant, whiteish(big))
	big.Close()
	return padded
}

// whiteish picks the pad color matching the dominant background so the
// border does not read as a stroke.
func whiteish(gray gocv.Mat) color.RGBA {
	if gray.Mean().Val1 > 127 {
		return color.RGBA{R: 255, G: 255, B: 255, A: 255}
	}
	return color.RGBA{}
}
