// Package instrument declares the narrow driver interfaces (spec §2 C1, §1)
// through which the spectrometer, GPS, altimeter and status LED hardware is
// accessed, plus simulated stand-ins for development. It owns no hardware
// and defines no ping/status/stop surface: components answer those commands
// through their dispatcher handlers.
package instrument

import "time"

// Spectrometer is the hardware driver surface named in spec §1.
type Spectrometer interface {
	Acquire(integrationMS int) ([]float64, error)
	GetPixels() ([]float64, error)
	Metadata() (Metadata, error)
	MinIntegration() int
	MaxIntegration() int
}

// Metadata is the hardware-reported detail attached to every acquired
// spectrum (spec §4.4, §6 required metadata keys).
type Metadata struct {
	SerialNumber                       string
	SaturationLevel                    float64
	WavelengthCalibrationCoefficients  []float64
	NonlinearityCorrectionCoefficients []float64
	OpticalPixelRangeStart             int
	OpticalPixelRangeEnd               int
}

// GPS is the location collaborator named in spec §1.
type GPS interface {
	Location() (lat, lon float64, err error)
}

// Altimeter is the altitude collaborator named in spec §1.
type Altimeter interface {
	Altitude() (meters float64, err error)
}

// StatusLED is the blink-pattern collaborator named in spec §1, used by the
// coordinator to surface state transitions (original_source supplement:
// state-change blink signalling).
type StatusLED interface {
	Blink(pattern string) error
}

// Pattern names used with StatusLED.Blink for coordinator state transitions.
const (
	PatternIdle      = "idle"
	PatternRecording = "recording"
	PatternPaused    = "paused"
	PatternError     = "error"
)

// NoopStatusLED satisfies StatusLED when no hardware LED is configured.
type NoopStatusLED struct{}

func (NoopStatusLED) Blink(string) error { return nil }

// FixTime bundles a GPS/altimeter read taken at acquisition time (spec
// original_source supplement: per-cycle GPS/altimeter attachment).
type FixTime struct {
	Lat, Lon, Altitude float64
	Valid              bool
	At                 time.Time
}

// ReadFix reads GPS and altimeter, tolerating either being nil or erroring;
// a failed read yields Valid=false rather than propagating the error, since
// a missing position fix must never block an acquisition.
func ReadFix(gps GPS, alt Altimeter) FixTime {
	fix := FixTime{At: time.Now()}
	if gps != nil {
		if lat, lon, err := gps.Location(); err == nil {
			fix.Lat, fix.Lon = lat, lon
			fix.Valid = true
		}
	}
	if alt != nil {
		if a, err := alt.Altitude(); err == nil {
			fix.Altitude = a
		}
	}
	return fix
}
