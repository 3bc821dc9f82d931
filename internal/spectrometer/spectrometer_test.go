package spectrometer

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piccolo2go/piccolo/internal/instrument"
)

// blockingSpectrometer blocks inside Acquire until unblock is closed, so a
// test can hold handleAcquire in flight and exercise the busy guard.
type blockingSpectrometer struct {
	min, max     int
	unblock      chan struct{}
	acquireCalls int32
}

func (d *blockingSpectrometer) Acquire(int) ([]float64, error) {
	atomic.AddInt32(&d.acquireCalls, 1)
	<-d.unblock
	return nil, nil
}
func (d *blockingSpectrometer) GetPixels() ([]float64, error) { return []float64{1, 2, 3}, nil }
func (d *blockingSpectrometer) Metadata() (instrument.Metadata, error) {
	return instrument.Metadata{}, nil
}
func (d *blockingSpectrometer) MinIntegration() int { return d.min }
func (d *blockingSpectrometer) MaxIntegration() int { return d.max }

// flatSpectrometer always reports an empty spectrum, so FindPeak never
// detects light.
type flatSpectrometer struct{ min, max int }

func (d *flatSpectrometer) Acquire(int) ([]float64, error) { return nil, nil }
func (d *flatSpectrometer) GetPixels() ([]float64, error)  { return make([]float64, 64), nil }
func (d *flatSpectrometer) Metadata() (instrument.Metadata, error) {
	return instrument.Metadata{}, nil
}
func (d *flatSpectrometer) MinIntegration() int { return d.min }
func (d *flatSpectrometer) MaxIntegration() int { return d.max }

func TestHandleAcquireRejectsReentrantCall(t *testing.T) {
	driver := &blockingSpectrometer{min: 10, max: 1000, unblock: make(chan struct{})}
	w := New("S_TEST", driver, 16)
	defer w.Stop()

	done := make(chan struct{})
	go func() {
		w.handleAcquire(Acquire{IntegrationMS: 100})
		close(done)
	}()

	require.Eventually(t, func() bool { return w.Busy() }, time.Second, time.Millisecond)

	// A second, reentrant call while the first is still in flight must see
	// the busy guard and never reach the driver.
	w.handleAcquire(Acquire{IntegrationMS: 100})
	assert.Equal(t, int32(1), atomic.LoadInt32(&driver.acquireCalls), "a reentrant Acquire must not reach the driver")

	close(driver.unblock)
	<-done
	assert.False(t, w.Busy(), "busy must clear once the in-flight acquire returns")
}

func TestSetIntegrationLimitsClampsToHardwareBounds(t *testing.T) {
	driver := instrument.NewSimulatedSpectrometer("SIM", 64, 50, 500, 1)
	w := New("S_A", driver, 4)
	defer w.Stop()

	tooLow, tooHigh := -10, 5000
	w.Submit(SetIntegrationLimits{MinMS: &tooLow, MaxMS: &tooHigh})

	res := <-w.Results()
	lr, ok := res.(LimitsResult)
	require.True(t, ok)
	assert.Equal(t, 50, lr.MinMS, "min below hardware floor must clamp up")
	assert.Equal(t, 500, lr.MaxMS, "max above hardware ceiling must clamp down")
}

func TestSetIntegrationLimitsLeavesUnsetBoundsInPlace(t *testing.T) {
	driver := instrument.NewSimulatedSpectrometer("SIM", 64, 50, 500, 1)
	w := New("S_A", driver, 4)
	defer w.Stop()

	newMin := 80
	w.Submit(SetIntegrationLimits{MinMS: &newMin})

	res := <-w.Results()
	lr, ok := res.(LimitsResult)
	require.True(t, ok)
	assert.Equal(t, 80, lr.MinMS)
	assert.Equal(t, 500, lr.MaxMS, "omitted max must keep the hardware ceiling")
}

func TestHandleAutointegrateFitsBestIntegrationTime(t *testing.T) {
	driver := instrument.NewSimulatedSpectrometer("SIM", 256, 10, 2000, 7)
	w := New("S_A", driver, 4)
	defer w.Stop()

	w.Submit(Autointegrate{TargetFraction: 0.5})

	res := <-w.Results()
	ar, ok := res.(AutointegrateResult)
	require.True(t, ok)
	require.Empty(t, ar.ErrorMessage)
	assert.GreaterOrEqual(t, ar.BestMS, 10)
	assert.LessOrEqual(t, ar.BestMS, 2000)
}

func TestHandleAutointegrateReportsNoLight(t *testing.T) {
	driver := &flatSpectrometer{min: 10, max: 100}
	w := New("S_DARK", driver, 4)
	defer w.Stop()

	w.Submit(Autointegrate{TargetFraction: 0.5})

	res := <-w.Results()
	ar, ok := res.(AutointegrateResult)
	require.True(t, ok)
	assert.Equal(t, "no light", ar.ErrorMessage)
}
