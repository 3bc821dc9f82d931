package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAddsAllCollectorsOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))

	metricFamilies, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, metricFamilies)
}

func TestRegisterFailsOnDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))
	assert.Error(t, Register(reg))
}

func TestAcquisitionsCounterIncrementsByLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))

	Acquisitions.WithLabelValues("S_A", "upwelling").Inc()

	var m dto.Metric
	require.NoError(t, Acquisitions.WithLabelValues("S_A", "upwelling").Write(&m))
	assert.Equal(t, float64(1), m.GetCounter().GetValue())
}
