// Package spectrum implements the Piccolo data model (spec §3, §6):
// Spectrum, SpectraList, the IntegrationTimes table, and the JSON output
// encoding. Reserved metadata keys are protected here so no client can
// overwrite fields the coordinator stamps at acquisition time.
package spectrum

import (
	"fmt"
	"time"
)

// Direction is the optical path a light acquisition was taken through (spec
// design note: model as an enum, not a boolean).
type Direction string

const (
	Upwelling   Direction = "upwelling"
	Downwelling Direction = "downwelling"
)

// Reserved metadata keys clients may never set directly.
const (
	KeyDirection = "Direction"
	KeyDark      = "Dark"
	KeyDatetime  = "Datetime"
	KeyName      = "name"
)

var reservedKeys = map[string]struct{}{
	KeyDirection: {},
	KeyDark:      {},
	KeyDatetime:  {},
	KeyName:      {},
}

// IsReserved reports whether key may not be set by client-supplied metadata.
func IsReserved(key string) bool {
	_, ok := reservedKeys[key]
	return ok
}

// Spectrum is one acquired spectrum: intensity samples plus metadata.
type Spectrum struct {
	Pixels   []float64      `json:"Pixels"`
	Metadata map[string]any `json:"Metadata"`
}

// NewSpectrum creates an empty spectrum ready for stamping.
func NewSpectrum(pixels []float64) *Spectrum {
	return &Spectrum{Pixels: pixels, Metadata: make(map[string]any)}
}

// SetMetadata sets a client-supplied metadata key, rejecting reserved keys.
func (s *Spectrum) SetMetadata(key string, value any) error {
	if IsReserved(key) {
		return fmt.Errorf("metadata key %q is reserved and cannot be set", key)
	}
	s.Metadata[key] = value
	return nil
}

// Stamp sets the four reserved fields; only the coordinator and worker call
// this directly, bypassing the SetMetadata protection.
func (s *Spectrum) Stamp(direction Direction, dark bool, at time.Time, name string) {
	s.Metadata[KeyDirection] = direction
	s.Metadata[KeyDark] = dark
	s.Metadata[KeyDatetime] = at.UTC().Format("2006-01-02T15:04:05.000000Z07:00")
	s.Metadata[KeyName] = name
}

// IsDark reports the Dark reserved field, defaulting to false if unset.
func (s *Spectrum) IsDark() bool {
	v, ok := s.Metadata[KeyDark]
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// SpectraList is the output of one coordinator cycle: an ordered sequence
// of Spectrum tagged with a sequence number and filename prefix.
type SpectraList struct {
	Spectra []*Spectrum
	SeqNr   int
	Prefix  string // e.g. "b000000_s"
}

// OutputName returns the canonical output filename for this list.
func (sl *SpectraList) OutputName() string {
	return fmt.Sprintf("%s%06d.pico", sl.Prefix, sl.SeqNr)
}

// outputDocument is the JSON shape spec §6 requires.
type outputDocument struct {
	Spectra        []*Spectrum `json:"Spectra"`
	SequenceNumber int         `json:"SequenceNumber"`
}

// ToDocument converts the list to its serializable form.
func (sl *SpectraList) ToDocument() any {
	return outputDocument{Spectra: sl.Spectra, SequenceNumber: sl.SeqNr}
}

// Split partitions the list's spectra into light and dark sub-lists,
// preserving SeqNr and Prefix, for the output writer's split=true policy.
func (sl *SpectraList) Split() (light, dark *SpectraList) {
	light = &SpectraList{SeqNr: sl.SeqNr, Prefix: sl.Prefix}
	dark = &SpectraList{SeqNr: sl.SeqNr, Prefix: sl.Prefix}
	for _, s := range sl.Spectra {
		if s.IsDark() {
			dark.Spectra = append(dark.Spectra, s)
		} else {
			light.Spectra = append(light.Spectra, s)
		}
	}
	return light, dark
}
