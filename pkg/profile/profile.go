// Package profile provides 1-D signal helpers shared by row detection and
// text-profile matching: smoothing, robust medians, cosine similarity and
// autocorrelation-based spacing estimates.
package profile

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const eps = 1e-9

// Normalize returns a copy of x scaled to unit L2 norm. A zero vector is
// returned unchanged.
func Normalize(x []float64) []float64 {
	out := make([]float64, len(x))
	copy(out, x)
	n := floats.Norm(out, 2)
	if n > eps {
		floats.Scale(1/n, out)
	}
	return out
}

// Cosine returns the cosine similarity of two equal-length vectors, with safe
// normalization. Mismatched or empty inputs yield 0.
func Cosine(u, v []float64) float64 {
	if len(u) == 0 || len(u) != len(v) {
		return 0
	}
	nu := floats.Norm(u, 2)
	nv := floats.Norm(v, 2)
	return floats.Dot(u, v) / ((nu + eps) * (nv + eps))
}

// Shift returns x translated by s positions with zero padding.
func Shift(x []float64, s int) []float64 {
	n := len(x)
	out := make([]float64, n)
	switch {
	case s >= n || -s >= n:
	case s >= 0:
		copy(out[s:], x[:n-s])
	default:
		copy(out[:n+s], x[-s:])
	}
	return out
}

// BestShiftedCosine returns the maximum cosine similarity of a against b over
// integer shifts of b in [-maxShift, maxShift], and the shift that achieved it.
func BestShiftedCosine(a, b []float64, maxShift int) (float64, int) {
	best, sBest := -1.0, 0
	for s := -maxShift; s <= maxShift; s++ {
		if c := Cosine(a, Shift(b, s)); c > best {
			best, sBest = c, s
		}
	}
	return best, sBest
}

// SmoothGaussian convolves x with a Gaussian kernel of the given (odd) size,
// replicating edge samples. Sigma follows the OpenCV rule for sigma=0.
func SmoothGaussian(x []float64, ksize int) []float64 {
	if ksize < 3 || len(x) == 0 {
		out := make([]float64, len(x))
		copy(out, x)
		return out
	}
	if ksize%2 == 0 {
		ksize++
	}
	sigma := 0.3*(float64(ksize-1)*0.5-1) + 0.8
	half := ksize / 2
	kernel := make([]float64, ksize)
	for i := range kernel {
		d := float64(i - half)
		kernel[i] = math.Exp(-d * d / (2 * sigma * sigma))
	}
	floats.Scale(1/floats.Sum(kernel), kernel)

	out := make([]float64, len(x))
	for i := range x {
		var acc float64
		for k := -half; k <= half; k++ {
			j := i + k
			if j < 0 {
				j = 0
			} else if j >= len(x) {
				j = len(x) - 1
			}
			acc += x[j] * kernel[k+half]
		}
		out[i] = acc
	}
	return out
}

// Median returns the median of x (0 for empty input). x is not modified.
func Median(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	s := make([]float64, len(x))
	copy(s, x)
	sort.Float64s(s)
	return stat.Quantile(0.5, stat.Empirical, s, nil)
}

// TrimmedMedian returns the median of x with the top and bottom quartile of
// samples dropped when at least four samples exist, guarding the estimate
// against outlier detections.
func TrimmedMedian(x []float64) float64 {
	if len(x) < 4 {
		return Median(x)
	}
	s := make([]float64, len(x))
	copy(s, x)
	sort.Float64s(s)
	k := max(1, len(s)/4)
	return stat.Quantile(0.5, stat.Empirical, s[k:len(s)-k], nil)
}

// EstimateSpacing estimates the dominant period of prof by the argmax of its
// autocorrelation in [minSep, minSep+maxLag). When the signal is too short
// the fallback value is returned instead.
func EstimateSpacing(prof []float64, minSep, maxLag, fallback int) int {
	n := len(prof)
	if n <= minSep+3 || maxLag <= 0 {
		return max(minSep, fallback)
	}
	mean := stat.Mean(prof, nil)
	centered := make([]float64, n)
	for i, v := range prof {
		centered[i] = v - mean
	}
	bestLag, bestVal := minSep, math.Inf(-1)
	for lag := minSep; lag < minSep+maxLag && lag < n; lag++ {
		var acc float64
		for i := 0; i+lag < n; i++ {
			acc += centered[i] * centered[i+lag]
		}
		if acc > bestVal {
			bestVal, bestLag = acc, lag
		}
	}
	return max(minSep, bestLag)
}
