package instrument

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulatedSpectrometerPeakScalesWithIntegrationTime(t *testing.T) {
	s := NewSimulatedSpectrometer("SIM-1", 256, 10, 2000, 1)

	_, err := s.Acquire(10)
	require.NoError(t, err)
	shortPixels, err := s.GetPixels()
	require.NoError(t, err)

	_, err = s.Acquire(1000)
	require.NoError(t, err)
	longPixels, err := s.GetPixels()
	require.NoError(t, err)

	assert.Greater(t, maxOf(longPixels), maxOf(shortPixels))
}

func TestSimulatedSpectrometerReportsLimits(t *testing.T) {
	s := NewSimulatedSpectrometer("SIM-1", 256, 10, 2000, 1)
	assert.Equal(t, 10, s.MinIntegration())
	assert.Equal(t, 2000, s.MaxIntegration())
}

func TestSimulatedSpectrometerMetadata(t *testing.T) {
	s := NewSimulatedSpectrometer("SIM-9", 128, 10, 2000, 1)
	meta, err := s.Metadata()
	require.NoError(t, err)
	assert.Equal(t, "SIM-9", meta.SerialNumber)
	assert.Equal(t, 127, meta.OpticalPixelRangeEnd)
}

func TestSimulatedShutterDriverNoop(t *testing.T) {
	var d SimulatedShutterDriver
	assert.NoError(t, d.Open())
	assert.NoError(t, d.Close())
}

func maxOf(xs []float64) float64 {
	m := xs[0]
	for _, x := range xs {
		if x > m {
			m = x
		}
	}
	return m
}
