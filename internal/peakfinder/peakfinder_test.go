package peakfinder

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gaussianPeak(n, center int, amplitude, sigma float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		d := float64(i - center)
		out[i] = amplitude*math.Exp(-(d*d)/(2*sigma*sigma)) + 5
	}
	return out
}

func TestMedianFilterSmoothsSpikeNoise(t *testing.T) {
	data := gaussianPeak(200, 100, 1000, 20)
	data[50] += 5000 // isolated spike

	smoothed := MedianFilter(data, 51)
	assert.Less(t, smoothed[50], 2000.0, "a single-pixel spike must not survive a 51-pixel median filter")
}

func TestMedianFilterPreservesLength(t *testing.T) {
	data := gaussianPeak(100, 50, 500, 10)
	smoothed := MedianFilter(data, 51)
	assert.Len(t, smoothed, len(data))
}

func TestFindPeakLocatesDominantPeak(t *testing.T) {
	data := gaussianPeak(256, 128, 1000, 15)
	idx, _, found := FindPeak(data)
	require.True(t, found)
	assert.InDelta(t, 128, idx, 5, "peak index should land near the synthetic peak center")
}

func TestFindPeakEmptyInput(t *testing.T) {
	_, _, found := FindPeak(nil)
	assert.False(t, found)
}

func TestLinearFitEvaluatesAtTarget(t *testing.T) {
	x := []float64{1, 2, 3, 4}
	y := []float64{2, 4, 6, 8}
	got, err := LinearFit(x, y, 5)
	require.NoError(t, err)
	assert.InDelta(t, 10, got, 1e-9)
}

func TestLinearFitTooFewPoints(t *testing.T) {
	_, err := LinearFit([]float64{1}, []float64{1}, 2)
	assert.Error(t, err)
}
