// Package output implements the spectra output writer (spec §4.6): it
// consumes completed SpectraList batches from a queue and writes them to
// the data directory with the clobber/split/collision-avoidance policy.
// Its queue-draining goroutine shape mirrors the spectrometer worker's
// run loop.
package output

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/piccolo2go/piccolo/internal/bus"
	"github.com/piccolo2go/piccolo/internal/logging"
	"github.com/piccolo2go/piccolo/internal/spectrum"
)

// Policy configures the writer's overwrite and split behavior.
type Policy struct {
	Clobber bool
	Split   bool
	Pretty  bool
}

// Writer drains a SpectraList queue and writes files under dataDir.
type Writer struct {
	dataDir string
	policy  Policy
	bus     *bus.Bus

	queue chan *spectrum.SpectraList
	wg    sync.WaitGroup

	mu               sync.Mutex
	fileIncremented  bool

	logger *slog.Logger
}

// New creates a Writer and starts its drain loop. bus may be nil in tests.
func New(dataDir string, policy Policy, b *bus.Bus, queueSize int) *Writer {
	w := &Writer{
		dataDir: dataDir,
		policy:  policy,
		bus:     b,
		queue:   make(chan *spectrum.SpectraList, queueSize),
		logger:  logging.ForService("output"),
	}
	w.wg.Add(1)
	go w.run()
	return w
}

// Enqueue submits a completed list. Blocks if the queue is full.
func (w *Writer) Enqueue(list *spectrum.SpectraList) {
	w.queue <- list
}

// Stop closes the queue and waits for the drain loop to finish writing
// whatever was already enqueued.
func (w *Writer) Stop() {
	close(w.queue)
	w.wg.Wait()
}

// FileIncremented reports the sticky flag raised the first time a
// collision forced a sequence-number bump.
func (w *Writer) FileIncremented() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fileIncremented
}

func (w *Writer) run() {
	defer w.wg.Done()
	for list := range w.queue {
		if err := w.write(list); err != nil {
			w.logger.Error("failed to write spectra batch", "err", err)
			if w.bus != nil {
				w.bus.Errorf("output write failed: %v", err)
			}
		}
	}
}

func (w *Writer) write(list *spectrum.SpectraList) error {
	if w.policy.Split {
		light, dark := list.Split()
		lightErr := w.writeOne(light, "_light")
		darkErr := w.writeOne(dark, "_dark")
		if lightErr != nil {
			return lightErr
		}
		return darkErr
	}
	return w.writeOne(list, "")
}

func (w *Writer) writeOne(list *spectrum.SpectraList, suffix string) error {
	name := list.OutputName() + suffix
	path := filepath.Join(w.dataDir, name)

	if !w.policy.Clobber {
		resolved, incremented := w.resolveCollision(path, list, suffix)
		path = resolved
		if incremented {
			w.mu.Lock()
			w.fileIncremented = true
			w.mu.Unlock()
			if w.bus != nil {
				w.bus.Warningf("output filename collision, incremented sequence for %s", name)
			}
		}
	}

	var data []byte
	var err error
	if w.policy.Pretty {
		data, err = json.MarshalIndent(list.ToDocument(), "", "  ")
	} else {
		data, err = json.Marshal(list.ToDocument())
	}
	if err != nil {
		return fmt.Errorf("marshal spectra list: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// resolveCollision increments seq until a free path is found, reporting
// whether it had to move off the originally requested name.
func (w *Writer) resolveCollision(path string, list *spectrum.SpectraList, suffix string) (string, bool) {
	if _, err := os.Stat(path); err != nil {
		return path, false
	}
	seq := list.SeqNr
	for {
		seq++
		candidate := filepath.Join(filepath.Dir(path), fmt.Sprintf("%s%06d.pico%s", list.Prefix, seq, suffix))
		if _, err := os.Stat(candidate); err != nil {
			return candidate, true
		}
	}
}
