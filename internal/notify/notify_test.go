package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/piccolo2go/piccolo/internal/bus"
)

func TestDisabledForwarderReportsNotEnabled(t *testing.T) {
	f := New("")
	assert.False(t, f.Enabled())
}

func TestDisabledForwarderSendIsNoop(t *testing.T) {
	f := New("")
	assert.NotPanics(t, func() { f.Send("hello") })
}

func TestDisabledForwarderRunReturnsImmediately(t *testing.T) {
	f := New("")
	b := bus.New()
	defer b.Shutdown()
	id := b.NewListener()

	done := make(chan struct{})
	go func() {
		f.Run(context.Background(), b, id)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return immediately for a disabled forwarder")
	}
}

func TestEnabledForwarderRunStopsOnContextCancel(t *testing.T) {
	f := New("generic+https://example.invalid/endpoint")
	b := bus.New()
	defer b.Shutdown()
	id := b.NewListener()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.Run(ctx, b, id)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
}
