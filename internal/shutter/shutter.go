// Package shutter implements one mechanical shutter controller (spec §4.3):
// an open/closed state machine guarded by a mutex local to the shutter, so
// that overlapping open_close calls from different goroutines still
// maintain open/closed exclusion.
package shutter

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Driver is the hardware collaborator named in spec §1: acquire/getPixels
// live on the spectrometer side, a shutter only opens and closes.
type Driver interface {
	Open() error
	Close() error
}

// State is the shutter's open/closed state.
type State int

const (
	Closed State = iota
	Open
)

func (s State) String() string {
	if s == Open {
		return "open"
	}
	return "closed"
}

// Shutter owns one hardware shutter and its exclusion mutex.
type Shutter struct {
	mu      sync.Mutex
	state   State
	driver  Driver
	reverse bool
}

// New creates a Shutter, initially closed. If reverse is set, Open and
// Close invert the electrical action sent to the driver.
func New(driver Driver, reverse bool) *Shutter {
	return &Shutter{driver: driver, reverse: reverse, state: Closed}
}

// Open transitions closed -> open. Errors if already open.
func (s *Shutter) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Open {
		return fmt.Errorf("shutter already open")
	}
	if err := s.driveOpen(); err != nil {
		return err
	}
	s.state = Open
	return nil
}

// Close transitions open -> closed. Errors if already closed.
func (s *Shutter) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Closed {
		return fmt.Errorf("shutter already closed")
	}
	if err := s.driveClose(); err != nil {
		return err
	}
	s.state = Closed
	return nil
}

func (s *Shutter) driveOpen() error {
	if s.reverse {
		return s.driver.Close()
	}
	return s.driver.Open()
}

func (s *Shutter) driveClose() error {
	if s.reverse {
		return s.driver.Open()
	}
	return s.driver.Close()
}

// Status returns the current state.
func (s *Shutter) Status() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Ping answers a liveness check (spec §2 C1's uniform ping/status surface).
func (s *Shutter) Ping() (string, error) { return "pong", nil }

// OpenClose opens the shutter, waits duration, then closes it on a helper
// goroutine, returning immediately. The helper acquires the same mutex as
// Open/Close so exclusion holds across concurrent callers. Cancelling ctx
// makes the helper close the shutter at once instead of waiting out
// duration; it does not interrupt anything on the hardware side.
func (s *Shutter) OpenClose(ctx context.Context, duration time.Duration) error {
	if err := s.Open(); err != nil {
		return err
	}
	go func() {
		select {
		case <-time.After(duration):
		case <-ctx.Done():
		}
		_ = s.Close()
	}()
	return nil
}
