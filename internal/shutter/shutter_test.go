package shutter

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDriver struct {
	mu    sync.Mutex
	opens, closes int
}

func (d *recordingDriver) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opens++
	return nil
}

func (d *recordingDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closes++
	return nil
}

func TestOpenCloseLifecycle(t *testing.T) {
	drv := &recordingDriver{}
	s := New(drv, false)

	assert.Equal(t, Closed, s.Status())
	require.NoError(t, s.Open())
	assert.Equal(t, Open, s.Status())
	assert.Error(t, s.Open(), "opening an already-open shutter must error")

	require.NoError(t, s.Close())
	assert.Equal(t, Closed, s.Status())
	assert.Error(t, s.Close(), "closing an already-closed shutter must error")
}

func TestReverseFlagInvertsDriverCalls(t *testing.T) {
	drv := &recordingDriver{}
	s := New(drv, true)

	require.NoError(t, s.Open())
	assert.Equal(t, 1, drv.closes, "reverse shutter calls driver Close() on logical Open()")
	assert.Equal(t, 0, drv.opens)

	require.NoError(t, s.Close())
	assert.Equal(t, 1, drv.opens, "reverse shutter calls driver Open() on logical Close()")
}

func TestOpenCloseHelperReturnsImmediately(t *testing.T) {
	drv := &recordingDriver{}
	s := New(drv, false)

	start := time.Now()
	err := s.OpenClose(context.Background(), 50*time.Millisecond)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 20*time.Millisecond, "OpenClose must return before the wait elapses")

	require.Eventually(t, func() bool { return s.Status() == Closed }, time.Second, time.Millisecond)
}

func TestConcurrentOpenCloseMaintainsExclusion(t *testing.T) {
	drv := &recordingDriver{}
	s := New(drv, false)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.OpenClose(context.Background(), time.Millisecond)
		}()
	}
	wg.Wait()

	require.Eventually(t, func() bool { return s.Status() == Closed }, time.Second, time.Millisecond)
}
