// Package peakfinder implements the signal-processing steps of the
// autointegration algorithm (spec §4.4 step 2-3): a median filter, a
// continuous-wavelet-transform peak finder, and a linear fit. No library in
// the example corpus offers wavelet peak-finding or a DSP median filter
// (confirmed by survey — see DESIGN.md), so this package is built directly
// on the standard library's math package.
package peakfinder

import "math"

// MedianFilter smooths data with an odd-width sliding-window median,
// matching spec §4.4's "~51-pixel window" step. Near the edges the window
// is cut off at the array bounds (so it is one-sided there) rather than
// padded.
func MedianFilter(data []float64, width int) []float64 {
	if width < 1 {
		width = 1
	}
	if width%2 == 0 {
		width++
	}
	half := width / 2
	out := make([]float64, len(data))
	buf := make([]float64, 0, width)

	for i := range data {
		lo := i - half
		if lo < 0 {
			lo = 0
		}
		hi := i + half
		if hi > len(data)-1 {
			hi = len(data) - 1
		}
		buf = buf[:0]
		for j := lo; j <= hi; j++ {
			buf = append(buf, data[j])
		}
		out[i] = median(buf)
	}
	return out
}

func median(xs []float64) float64 {
	n := len(xs)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, xs)
	// insertion sort: windows are small (tens of pixels), so this stays cheap
	for i := 1; i < n; i++ {
		v := sorted[i]
		j := i - 1
		for j >= 0 && sorted[j] > v {
			sorted[j+1] = sorted[j]
			j--
		}
		sorted[j+1] = v
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// rickerWavelet evaluates the Ricker ("Mexican hat") wavelet of given width
// at offset points, used as the CWT kernel.
func rickerWavelet(points int, width float64) []float64 {
	out := make([]float64, points)
	a := width
	norm := 2.0 / (math.Sqrt(3*a) * math.Pow(math.Pi, 0.25))
	center := float64(points-1) / 2
	for i := 0; i < points; i++ {
		x := float64(i) - center
		xsq := (x * x) / (a * a)
		out[i] = norm * (1 - xsq) * math.Exp(-xsq/2)
	}
	return out
}

func convolveSame(signal, kernel []float64) []float64 {
	n := len(signal)
	k := len(kernel)
	out := make([]float64, n)
	half := k / 2
	for i := 0; i < n; i++ {
		var sum float64
		for j := 0; j < k; j++ {
			idx := i + j - half
			if idx < 0 || idx >= n {
				continue
			}
			sum += signal[idx] * kernel[k-1-j]
		}
		out[i] = sum
	}
	return out
}

// Widths is the wavelet-scale range used by FindPeak. The open question of
// exact widths (spec §9) is resolved here: a 1-20 pixel Ricker range, wide
// enough to span the narrowest and broadest expected spectrometer peaks
// without being tuned to one instrument.
var Widths = makeRange(1, 20)

func makeRange(lo, hi int) []int {
	out := make([]int, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		out = append(out, i)
	}
	return out
}

// FindPeak locates the highest peak in data using a continuous wavelet
// transform across Widths, returning its index and value. It reports found
// = false for an empty or all-zero input.
func FindPeak(data []float64) (index int, value float64, found bool) {
	if len(data) == 0 {
		return 0, 0, false
	}

	// Sum the CWT response across all scales; the ridge with the largest
	// combined response is the dominant peak.
	response := make([]float64, len(data))
	for _, w := range Widths {
		points := w * 10
		if points < 3 {
			points = 3
		}
		if points > len(data) {
			points = len(data)
		}
		kernel := rickerWavelet(points, float64(w))
		conv := convolveSame(data, kernel)
		for i, v := range conv {
			response[i] += v
		}
	}

	best := 0
	for i, v := range response {
		if v > response[best] {
			best = i
		}
	}
	if response[best] <= 0 {
		return 0, 0, false
	}
	return best, data[best], true
}

// LinearFit fits y = a + b*x by least squares over equal-length x, y, and
// evaluates it at xEval.
func LinearFit(x, y []float64, xEval float64) (yEval float64, err error) {
	n := len(x)
	if n != len(y) || n < 2 {
		return 0, errTooFewPoints
	}
	var sx, sy, sxx, sxy float64
	for i := 0; i < n; i++ {
		sx += x[i]
		sy += y[i]
		sxx += x[i] * x[i]
		sxy += x[i] * y[i]
	}
	nf := float64(n)
	denom := nf*sxx - sx*sx
	if denom == 0 {
		return 0, errDegenerateFit
	}
	b := (nf*sxy - sx*sy) / denom
	a := (sy - b*sx) / nf
	return a + b*xEval, nil
}
