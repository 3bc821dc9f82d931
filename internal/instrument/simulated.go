package instrument

import (
	"math"
	"math/rand"
)

// SimulatedSpectrometer stands in for real hardware when none is attached,
// so the server can be started and exercised end to end in development.
// Real hardware drivers are out of scope (spec §1): this is the one
// concrete Spectrometer this module ships.
type SimulatedSpectrometer struct {
	serial           string
	pixelCount       int
	minMS, maxMS     int
	saturation       float64
	lastIntegration  int
	rng              *rand.Rand
}

// NewSimulatedSpectrometer creates a simulated driver with a synthetic
// single-peak spectrum whose peak height scales with integration time.
func NewSimulatedSpectrometer(serial string, pixelCount, minMS, maxMS int, seed int64) *SimulatedSpectrometer {
	return &SimulatedSpectrometer{
		serial:     serial,
		pixelCount: pixelCount,
		minMS:      minMS,
		maxMS:      maxMS,
		saturation: 65535,
		rng:        rand.New(rand.NewSource(seed)),
	}
}

func (s *SimulatedSpectrometer) Acquire(integrationMS int) ([]float64, error) {
	s.lastIntegration = integrationMS
	return nil, nil
}

func (s *SimulatedSpectrometer) GetPixels() ([]float64, error) {
	pixels := make([]float64, s.pixelCount)
	peakCenter := s.pixelCount / 2
	amplitude := math.Min(s.saturation, float64(s.lastIntegration)*40)
	for i := range pixels {
		dist := float64(i - peakCenter)
		gauss := amplitude * math.Exp(-(dist*dist)/(2*30*30))
		noise := s.rng.Float64() * 50
		pixels[i] = gauss + noise
	}
	return pixels, nil
}

func (s *SimulatedSpectrometer) Metadata() (Metadata, error) {
	return Metadata{
		SerialNumber:                       s.serial,
		SaturationLevel:                    s.saturation,
		WavelengthCalibrationCoefficients:  []float64{350.0, 0.38, -1.1e-5},
		NonlinearityCorrectionCoefficients: []float64{1.0, 0.0},
		OpticalPixelRangeStart:             0,
		OpticalPixelRangeEnd:               s.pixelCount - 1,
	}, nil
}

func (s *SimulatedSpectrometer) MinIntegration() int { return s.minMS }
func (s *SimulatedSpectrometer) MaxIntegration() int { return s.maxMS }

// SimulatedShutterDriver stands in for a real mechanical shutter.
type SimulatedShutterDriver struct{}

func (SimulatedShutterDriver) Open() error  { return nil }
func (SimulatedShutterDriver) Close() error { return nil }

// SimulatedGPS reports a fixed, arbitrary location.
type SimulatedGPS struct{ Lat, Lon float64 }

func (g SimulatedGPS) Location() (float64, float64, error) { return g.Lat, g.Lon, nil }

// SimulatedAltimeter reports a fixed altitude.
type SimulatedAltimeter struct{ Meters float64 }

func (a SimulatedAltimeter) Altitude() (float64, error) { return a.Meters, nil }
