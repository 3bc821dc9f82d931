package coordinator

import (
	"fmt"
	"time"

	"github.com/piccolo2go/piccolo/internal/instrument"
	"github.com/piccolo2go/piccolo/internal/spectrometer"
	"github.com/piccolo2go/piccolo/internal/spectrum"
)

const acquisitionWaitWindow = 200 * time.Millisecond

// measurement is one entry of a cycle's acquisition pattern.
type measurement struct{ dark bool }

// beginRecord admits a new recording synchronously: the busy check and the
// Idle->Recording transition happen on the coordinator's own goroutine,
// under c.mu, before anything blocks. The cycle loop itself runs on a
// separate goroutine so run() stays free to dispatch Abort/Pause/Dark/
// Shutdown the instant they're submitted, instead of queueing behind the
// whole recording (spec §4.5/§5: abort/pause/dark must be pollable during
// an active cycle).
func (c *Coordinator) beginRecord(t Record, reply chan Reply) {
	c.mu.Lock()
	if c.state != Idle {
		c.mu.Unlock()
		reply <- Reply{OK: false, Value: "already recording"}
		return
	}
	c.state = Recording
	c.mu.Unlock()
	_ = c.led.Blink(instrument.PatternRecording)

	c.recording.Add(1)
	go func() {
		defer c.recording.Done()
		c.runRecord(t, reply)
	}()
}

// runRecord drives the recording state machine described in spec §4.5 on
// its own goroutine.
func (c *Coordinator) runRecord(t Record, reply chan Reply) {
	batch := 0
	if c.dataDir != nil {
		b, err := c.dataDir.GetNextCounter(t.OutDir)
		if err == nil {
			batch = b
		}
	}

	reply <- Reply{OK: true, Value: "recording started"}

	nCycles := t.NCycles
	if nCycles == 0 {
		nCycles = 1
	}

	aborted := false
	for n := 1; nCycles == InfiniteCycles || n <= nCycles; n++ {
		if n > 1 && t.DelaySeconds > 0 {
			if c.sleepPollable(t.DelaySeconds) {
				aborted = true
				break
			}
		}
		if c.pollControl() {
			aborted = true
			break
		}

		if c.shouldAutointegrate(n) {
			c.runAutointegration(t.TargetFraction)
		}

		pattern := c.choosePattern(n, nCycles)

		list := &spectrum.SpectraList{SeqNr: n - 1, Prefix: fmt.Sprintf("b%06d_s", batch)}
		for _, m := range pattern {
			c.runMeasurement(m, batch, n-1, list)
			if c.pollControl() {
				aborted = true
				break
			}
		}

		if c.writer != nil {
			c.writer.Enqueue(list)
		}

		if aborted {
			break
		}
	}

	c.mu.Lock()
	c.state = Idle
	c.mu.Unlock()
	_ = c.led.Blink(instrument.PatternIdle)
}

// shouldAutointegrate implements the n=1/mode=0 and mode>0 periodic rule.
func (c *Coordinator) shouldAutointegrate(n int) bool {
	c.mu.Lock()
	mode := c.autoMode
	c.mu.Unlock()

	switch {
	case mode == AutoNever:
		return false
	case mode == AutoOnce:
		return n == 1
	case mode > 0:
		return (n-1)%int(mode) == 0
	default:
		return false
	}
}

func (c *Coordinator) runAutointegration(targetFraction float64) {
	if targetFraction <= 0 {
		targetFraction = 0.8
	}
	for shutterName, sh := range c.shutters {
		// Autointegrate each spectrometer with only this direction's shutter open.
		_ = sh.Open()
		for otherName, other := range c.shutters {
			if otherName != shutterName {
				_ = other.Close()
			}
		}
		for specName, w := range c.workers {
			w.Submit(spectrometer.Autointegrate{TargetFraction: targetFraction})
			res := <-w.Results()
			ar, ok := res.(spectrometer.AutointegrateResult)
			if !ok {
				continue
			}
			if ar.ErrorMessage != "" {
				if c.integration != nil {
					c.integration.Set(shutterName, specName, 0, spectrum.SourceAutointegrationFailed, false)
				}
				if c.bus != nil {
					c.bus.Warningf("autointegration failed for %s/%s: %s", shutterName, specName, ar.ErrorMessage)
				}
				continue
			}
			if c.integration != nil {
				c.integration.Set(shutterName, specName, ar.BestMS, spectrum.SourceAutointegrated, false)
			}
		}
		_ = sh.Close()
	}
}

// choosePattern implements spec §4.5 step 3's measurement-pattern rule.
func (c *Coordinator) choosePattern(n, nCycles int) []measurement {
	c.mu.Lock()
	needDark := c.needDark || n == 1
	c.needDark = false
	c.mu.Unlock()
	if c.integration != nil && c.integration.ConsumeNeedDark() {
		needDark = true
	}

	pattern := []measurement{{dark: false}}
	if needDark {
		pattern = append([]measurement{{dark: true}}, pattern...)
	}

	finite := nCycles != InfiniteCycles
	if finite && n == nCycles {
		hasDark := false
		for _, m := range pattern {
			if m.dark {
				hasDark = true
			}
		}
		if !hasDark {
			pattern = append(pattern, measurement{dark: true})
		} else if len(pattern) == 1 && pattern[0].dark {
			// already the sole, dark measurement: stays as-is
		}
		if len(pattern) > 2 {
			pattern = pattern[:2]
		}
	}
	return pattern
}

// runMeasurement drives one dark-or-light measurement across every shutter
// and spectrometer, enforcing shutter exclusion (spec §8 property 1).
func (c *Coordinator) runMeasurement(m measurement, batch, seq int, list *spectrum.SpectraList) {
	fix := instrument.ReadFix(c.gps, c.altimeter)

	for shutterName, sh := range c.shutters {
		if m.dark {
			_ = sh.Close()
		} else {
			_ = sh.Open()
		}
		for otherName, other := range c.shutters {
			if otherName == shutterName {
				continue
			}
			_ = other.Close()
		}

		direction := spectrum.Direction(shutterName)
		for specName, w := range c.workers {
			ms := 0
			if c.integration != nil {
				if cell, ok := c.integration.Get(shutterName, specName); ok {
					ms = cell.ValueMS
				}
			}
			w.Submit(spectrometer.Acquire{
				IntegrationMS: ms,
				Direction:     direction,
				Dark:          m.dark,
				Fix:           fix,
				Batch:         batch,
				Seq:           seq,
			})
		}

		deadline := time.After(acquisitionWaitWindow)
		pending := len(c.workers)
	collect:
		for pending > 0 {
			select {
			case <-deadline:
				break collect
			default:
			}
			progressed := false
			for _, w := range c.workers {
				select {
				case res := <-w.Results():
					if sr, ok := res.(spectrometer.SpectrumResult); ok {
						list.Spectra = append(list.Spectra, sr.Spectrum)
						pending--
						progressed = true
					}
				default:
				}
			}
			if !progressed {
				time.Sleep(2 * time.Millisecond)
			}
		}

		_ = sh.Close()
	}
}

// sleepPollable sleeps for seconds while polling for abort/shutdown and
// honoring an in-progress pause, returning true if an abort or shutdown was
// observed.
func (c *Coordinator) sleepPollable(seconds float64) bool {
	deadline := time.Now().Add(time.Duration(seconds * float64(time.Second)))
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for time.Now().Before(deadline) {
		select {
		case <-c.abortCh:
			return true
		case <-ticker.C:
			if c.waitIfPaused() {
				return true
			}
		}
	}
	return false
}

// pollControl non-blockingly checks for a pending abort, then blocks while
// the coordinator is paused. It returns true only if an abort was observed,
// either directly or while waiting out a pause.
func (c *Coordinator) pollControl() bool {
	select {
	case <-c.abortCh:
		return true
	default:
	}
	return c.waitIfPaused()
}

// waitIfPaused blocks while the coordinator's state is Paused, waking on
// either a resume (handlePause signals resumeCh) or an abort. Returns true
// if the wait ended because of an abort rather than a resume.
func (c *Coordinator) waitIfPaused() bool {
	for {
		c.mu.Lock()
		paused := c.state == Paused
		c.mu.Unlock()
		if !paused {
			return false
		}
		select {
		case <-c.resumeCh:
		case <-c.abortCh:
			return true
		}
	}
}
