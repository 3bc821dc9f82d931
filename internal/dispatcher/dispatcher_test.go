package dispatcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piccolo2go/piccolo/internal/scheduler"
)

func newTestDispatcher() *Dispatcher {
	return New(scheduler.New(), 20*time.Millisecond)
}

func TestUnknownComponentYieldsNOK(t *testing.T) {
	d := newTestDispatcher()
	resp := d.Submit(Task{Command: "ping", Component: "nonexistent"})
	assert.Equal(t, NOK, resp.Status)
}

func TestComponentsVerbListsRegistry(t *testing.T) {
	d := newTestDispatcher()
	d.Register("shutterA", Component{Handle: func(string, map[string]any) (any, error) { return nil, nil }})

	resp := d.Submit(Task{Command: verbComponents})
	assert.Equal(t, OK, resp.Status)
	names, ok := resp.Value.([]string)
	require.True(t, ok)
	assert.Contains(t, names, "shutterA")
}

func TestPanicRecoveredAtDispatcherBoundary(t *testing.T) {
	d := newTestDispatcher()
	d.Register("flaky", Component{Handle: func(string, map[string]any) (any, error) {
		panic("boom")
	}})

	resp := d.Submit(Task{Command: "do", Component: "flaky"})
	assert.Equal(t, NOK, resp.Status)
	assert.Contains(t, resp.Value.(string), "internal error")
}

func TestKwargsWithAtTimeAreScheduledNotExecuted(t *testing.T) {
	d := newTestDispatcher()
	executed := false
	d.Register("coordinator", Component{Handle: func(string, map[string]any) (any, error) {
		executed = true
		return "ran", nil
	}})

	resp := d.Submit(Task{
		Command:   "record",
		Component: "coordinator",
		Kwargs:    map[string]any{"at_time": time.Now().Add(time.Hour).Format(time.RFC3339)},
	})

	assert.Equal(t, OK, resp.Status)
	assert.Equal(t, "scheduled", resp.Value)
	assert.False(t, executed, "a task carrying at_time must be handed to the scheduler, not run immediately")
}

func TestStopDrainsAndStopsComponents(t *testing.T) {
	d := newTestDispatcher()
	stopped := false
	d.Register("worker", Component{
		Handle: func(string, map[string]any) (any, error) { return nil, nil },
		Stop:   func() error { stopped = true; return nil },
	})

	resp := d.Submit(Task{Command: verbStop})
	assert.Equal(t, OK, resp.Status)
	assert.True(t, stopped)
}
