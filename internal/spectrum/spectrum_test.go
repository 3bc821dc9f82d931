package spectrum

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetMetadataRejectsReservedKeys(t *testing.T) {
	sp := NewSpectrum([]float64{1, 2, 3})
	for _, key := range []string{KeyDirection, KeyDark, KeyDatetime, KeyName} {
		err := sp.SetMetadata(key, "anything")
		require.Error(t, err, "key %q must be protected", key)
	}
}

func TestSetMetadataAllowsOtherKeys(t *testing.T) {
	sp := NewSpectrum([]float64{1, 2, 3})
	require.NoError(t, sp.SetMetadata("SerialNumber", "SN123"))
	assert.Equal(t, "SN123", sp.Metadata["SerialNumber"])
}

func TestStampSetsReservedFields(t *testing.T) {
	sp := NewSpectrum(nil)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	sp.Stamp(Upwelling, true, now, "S_A")

	assert.Equal(t, Upwelling, sp.Metadata[KeyDirection])
	assert.Equal(t, true, sp.Metadata[KeyDark])
	assert.Equal(t, "S_A", sp.Metadata[KeyName])
	assert.True(t, sp.IsDark())
}

func TestOutputNameFormat(t *testing.T) {
	list := &SpectraList{SeqNr: 3, Prefix: "b000001_s"}
	assert.Equal(t, "b000001_s000003.pico", list.OutputName())
}

func TestSplitPartitionsByDark(t *testing.T) {
	list := &SpectraList{SeqNr: 0, Prefix: "b000000_s"}

	lightSp := NewSpectrum(nil)
	lightSp.Stamp(Upwelling, false, time.Now(), "S_A")
	darkSp := NewSpectrum(nil)
	darkSp.Stamp(Upwelling, true, time.Now(), "S_A")
	list.Spectra = []*Spectrum{lightSp, darkSp}

	light, dark := list.Split()
	require.Len(t, light.Spectra, 1)
	require.Len(t, dark.Spectra, 1)
	assert.False(t, light.Spectra[0].IsDark())
	assert.True(t, dark.Spectra[0].IsDark())
}
