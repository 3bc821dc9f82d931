// Package spectrometer implements the per-spectrometer worker (spec §4.4):
// a single goroutine serving a typed task queue, a busy mutex rejecting
// overlapping tasks, a result queue, and the autointegration algorithm. The
// task-queue/worker-goroutine shape is grounded on the teacher's
// internal/analysis/processor job queue pattern, adapted from a retryable
// generic job list to a single-threaded serialized hardware queue.
package spectrometer

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/piccolo2go/piccolo/internal/instrument"
	"github.com/piccolo2go/piccolo/internal/logging"
	"github.com/piccolo2go/piccolo/internal/peakfinder"
	"github.com/piccolo2go/piccolo/internal/spectrum"
)

// Task is the sealed set of operations a worker accepts (spec §4.4).
type Task interface {
	isTask()
}

// SetIntegrationLimits updates hardware-clamped min/max and publishes the
// new (min, max, current) on the integration-time report channel.
type SetIntegrationLimits struct {
	MinMS, MaxMS *int
}

// Acquire sets the integration time, requests one spectrum, and stamps it.
type Acquire struct {
	IntegrationMS int
	Direction     spectrum.Direction
	Dark          bool
	Fix           instrument.FixTime
	Batch, Seq    int
}

// Autointegrate runs the algorithm in spec §4.4 and pushes its result.
type Autointegrate struct {
	TargetFraction float64
}

// stopTask is the null sentinel that closes the worker.
type stopTask struct{}

func (SetIntegrationLimits) isTask() {}
func (Acquire) isTask()              {}
func (Autointegrate) isTask()         {}
func (stopTask) isTask()              {}

// Result is the sealed set of outputs a worker produces.
type Result interface {
	isResult()
}

// SpectrumResult carries one acquired spectrum.
type SpectrumResult struct {
	Spectrum *spectrum.Spectrum
	Batch    int
	Seq      int
}

// AutointegrateResult carries the outcome of an Autointegrate task.
type AutointegrateResult struct {
	BestMS       int
	ErrorMessage string
}

// LimitsResult reports the current (min, max, current-ms) triple.
type LimitsResult struct {
	MinMS, MaxMS, CurrentMS int
}

func (SpectrumResult) isResult()       {}
func (AutointegrateResult) isResult()  {}
func (LimitsResult) isResult()         {}

const (
	busyError     = "already recording spectrum"
	maxDoublings  = 10
	postLightSamples = 5
	medianWindow  = 51
	hardwareRetryBudget = 3
)

// Worker owns one hardware spectrometer, a task queue, and a result queue.
type Worker struct {
	name   string
	driver instrument.Spectrometer

	tasks   chan Task
	results chan Result

	busy atomic.Bool

	mu         sync.Mutex
	minMS      int
	maxMS      int
	currentMS  int

	logger *slog.Logger
	wg     sync.WaitGroup
}

// New creates a Worker and starts its run loop.
func New(name string, driver instrument.Spectrometer, resultBuffer int) *Worker {
	logger := logging.ForService("spectrometer")
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	w := &Worker{
		name:    name,
		driver:  driver,
		tasks:   make(chan Task, 16),
		results: make(chan Result, resultBuffer),
		minMS:   driver.MinIntegration(),
		maxMS:   driver.MaxIntegration(),
		logger:  logger.With("spectrometer", name),
	}
	w.wg.Add(1)
	go w.run()
	return w
}

// Results exposes the worker's result queue for the coordinator to drain.
func (w *Worker) Results() <-chan Result { return w.results }

// Submit enqueues a task. Blocks if the queue is full (bound >= 16 per
// spec §5); callers on the coordinator's own goroutine should not submit
// synchronously from inside a tight loop without expecting backpressure.
func (w *Worker) Submit(t Task) {
	w.tasks <- t
}

// Stop enqueues the sentinel and waits for the worker to exit.
func (w *Worker) Stop() {
	w.tasks <- stopTask{}
	w.wg.Wait()
}

// Busy reports whether the worker currently rejects new acquire requests.
func (w *Worker) Busy() bool { return w.busy.Load() }

// Ping answers a liveness check (spec §2 C1's uniform ping/status surface).
func (w *Worker) Ping() (string, error) { return "pong", nil }

func (w *Worker) run() {
	defer w.wg.Done()
	for t := range w.tasks {
		switch task := t.(type) {
		case stopTask:
			return
		case SetIntegrationLimits:
			w.handleSetLimits(task)
		case Acquire:
			w.handleAcquire(task)
		case Autointegrate:
			w.handleAutointegrate(task)
		}
	}
}

func (w *Worker) handleSetLimits(task SetIntegrationLimits) {
	w.mu.Lock()
	hwMin, hwMax := w.driver.MinIntegration(), w.driver.MaxIntegration()
	if task.MinMS != nil {
		w.minMS = clamp(*task.MinMS, hwMin, hwMax)
	}
	if task.MaxMS != nil {
		w.maxMS = clamp(*task.MaxMS, hwMin, hwMax)
	}
	res := LimitsResult{MinMS: w.minMS, MaxMS: w.maxMS, CurrentMS: w.currentMS}
	w.mu.Unlock()

	w.emit(res)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (w *Worker) handleAcquire(task Acquire) {
	if !w.busy.CompareAndSwap(false, true) {
		w.logger.Warn(busyError)
		return
	}
	defer w.busy.Store(false)

	w.mu.Lock()
	ms := clamp(task.IntegrationMS, w.minMS, w.maxMS)
	w.currentMS = ms
	w.mu.Unlock()

	pixels, err := w.acquireWithRetry(ms)
	if err != nil {
		w.logger.Error("acquisition failed after retries, using an empty pixel slice", "err", err)
	}

	sp := spectrum.NewSpectrum(pixels)
	meta, merr := w.driver.Metadata()
	if merr == nil {
		_ = sp.SetMetadata("SerialNumber", meta.SerialNumber)
		_ = sp.SetMetadata("SaturationLevel", meta.SaturationLevel)
		_ = sp.SetMetadata("WavelengthCalibrationCoefficients", meta.WavelengthCalibrationCoefficients)
		_ = sp.SetMetadata("NonlinearityCorrectionCoefficients", meta.NonlinearityCorrectionCoefficients)
		_ = sp.SetMetadata("OpticalPixelRange", [2]int{meta.OpticalPixelRangeStart, meta.OpticalPixelRangeEnd})
	}
	_ = sp.SetMetadata("IntegrationTime", ms)
	_ = sp.SetMetadata("IntegrationTimeUnits", "ms")
	if task.Fix.Valid {
		_ = sp.SetMetadata("GPSLatitude", task.Fix.Lat)
		_ = sp.SetMetadata("GPSLongitude", task.Fix.Lon)
		_ = sp.SetMetadata("Altitude", task.Fix.Altitude)
	}
	_ = sp.SetMetadata("Batch", task.Batch)
	_ = sp.SetMetadata("Sequence", task.Seq)

	sp.Stamp(task.Direction, task.Dark, time.Now(), w.name)

	w.emit(SpectrumResult{Spectrum: sp, Batch: task.Batch, Seq: task.Seq})
}

// acquireWithRetry retries a transient hardware read up to
// hardwareRetryBudget times. When every attempt fails it returns an empty
// pixel slice together with the last error rather than crashing; the slice
// is not sized to the detector and holds no zero-filled pixels.
func (w *Worker) acquireWithRetry(ms int) ([]float64, error) {
	var lastErr error
	for attempt := 0; attempt < hardwareRetryBudget; attempt++ {
		if _, err := w.driver.Acquire(ms); err != nil {
			lastErr = err
			continue
		}
		pixels, err := w.driver.GetPixels()
		if err != nil {
			lastErr = err
			continue
		}
		return pixels, nil
	}
	return make([]float64, 0), lastErr
}

func (w *Worker) emit(r Result) {
	select {
	case w.results <- r:
	default:
		w.logger.Warn("result queue full, dropping result")
	}
}

// handleAutointegrate implements spec §4.4's algorithm.
func (w *Worker) handleAutointegrate(task Autointegrate) {
	w.mu.Lock()
	minMS, maxMS := w.minMS, w.maxMS
	w.mu.Unlock()

	ms := minMS
	var lightPixels []float64
	found := false

	for step := 0; step < maxDoublings; step++ {
		pixels, err := w.acquireWithRetry(ms)
		if err == nil {
			if _, _, ok := peakfinder.FindPeak(pixels); ok {
				lightPixels = pixels
				found = true
				break
			}
		}
		ms *= 2
		if ms > maxMS {
			ms = maxMS
		}
	}

	if !found {
		w.emit(AutointegrateResult{ErrorMessage: "no light"})
		return
	}

	xs := make([]float64, 0, postLightSamples+1)
	ys := make([]float64, 0, postLightSamples+1)

	smoothed := peakfinder.MedianFilter(lightPixels, medianWindow)
	if _, peakVal, ok := peakfinder.FindPeak(smoothed); ok {
		xs = append(xs, peakVal)
		ys = append(ys, float64(ms))
	}

	step := float64(maxMS-ms) / float64(postLightSamples)
	if step <= 0 {
		step = 1
	}
	for i := 1; i <= postLightSamples; i++ {
		sampleMS := ms + int(step*float64(i))
		sampleMS = clamp(sampleMS, minMS, maxMS)

		pixels, err := w.acquireWithRetry(sampleMS)
		if err != nil {
			continue
		}
		smoothed := peakfinder.MedianFilter(pixels, medianWindow)
		_, peakVal, ok := peakfinder.FindPeak(smoothed)
		if !ok {
			continue
		}
		xs = append(xs, peakVal)
		ys = append(ys, float64(sampleMS))
	}

	if len(xs) < 2 {
		w.emit(AutointegrateResult{ErrorMessage: "insufficient samples for fit"})
		return
	}

	meta, merr := w.driver.Metadata()
	saturation := 65535.0
	if merr == nil && meta.SaturationLevel > 0 {
		saturation = meta.SaturationLevel
	}

	target := task.TargetFraction * saturation
	bestMS, err := peakfinder.LinearFit(xs, ys, target)
	if err != nil {
		w.emit(AutointegrateResult{ErrorMessage: fmt.Sprintf("fit failed: %v", err)})
		return
	}

	best := clamp(int(bestMS), minMS, maxMS)
	w.emit(AutointegrateResult{BestMS: best})
}
