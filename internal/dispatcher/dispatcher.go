// Package dispatcher implements the Piccolo command dispatcher (spec §4.1):
// a single goroutine owning the component registry and the scheduler,
// receiving tagged commands from any transport adapter and draining
// runnable scheduled jobs on every idle tick. Component failures are
// recovered at this boundary and turned into (nok, message) using
// internal/perrors, per spec §7's propagation rule.
package dispatcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/piccolo2go/piccolo/internal/logging"
	"github.com/piccolo2go/piccolo/internal/perrors"
	"github.com/piccolo2go/piccolo/internal/scheduler"
)

// Status is the coarse outcome of a dispatched command.
type Status string

const (
	OK  Status = "ok"
	NOK Status = "nok"
)

// Response is the (status, value) pair every dispatched command returns.
type Response struct {
	Status Status
	Value  any
}

// Task is the (command, component, kwargs) triple spec §4.1 and §6 define.
type Task struct {
	Command   string
	Component string
	Kwargs    map[string]any
}

// Handler executes one command against its owning component.
type Handler func(command string, kwargs map[string]any) (any, error)

// Component is a registry entry: its command handler plus a stop hook.
type Component struct {
	Handle Handler
	Stop   func() error
}

const (
	verbStop       = "stop"
	verbComponents = "components"
)

var schedulingKeys = []string{"at_time", "interval", "end_time"}

// Dispatcher owns the component registry and the scheduler.
type Dispatcher struct {
	mu         sync.RWMutex
	components map[string]Component

	scheduler *scheduler.Scheduler
	logger    *slog.Logger

	tasks chan taskRequest
	tick  time.Duration

	stopped chan struct{}
	wg      sync.WaitGroup
}

type taskRequest struct {
	task  Task
	reply chan Response
}

// New creates a Dispatcher with the given idle-tick interval (spec §4.1
// default 100ms) and starts its run loop.
func New(sched *scheduler.Scheduler, tick time.Duration) *Dispatcher {
	if tick <= 0 {
		tick = 100 * time.Millisecond
	}
	d := &Dispatcher{
		components: make(map[string]Component),
		scheduler:  sched,
		logger:     logging.ForService("dispatcher"),
		tasks:      make(chan taskRequest, 16),
		tick:       tick,
		stopped:    make(chan struct{}),
	}
	d.wg.Add(1)
	go d.run()
	return d
}

// Register adds a named component to the registry.
func (d *Dispatcher) Register(name string, c Component) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.components[name] = c
}

// Submit enqueues a task and blocks for its reply.
func (d *Dispatcher) Submit(t Task) Response {
	req := taskRequest{task: t, reply: make(chan Response, 1)}
	select {
	case d.tasks <- req:
	case <-d.stopped:
		return Response{Status: NOK, Value: "dispatcher stopped"}
	}
	return <-req.reply
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	ticker := time.NewTicker(d.tick)
	defer ticker.Stop()

	for {
		select {
		case req, ok := <-d.tasks:
			if !ok {
				return
			}
			if d.handleControlVerb(req) {
				if req.task.Command == verbStop {
					return
				}
				continue
			}
			resp := d.execute(req.task)
			req.reply <- resp
		case <-ticker.C:
			d.drainScheduledJobs()
		}
	}
}

// handleControlVerb answers stop/components directly, returning true if it
// did (so the caller should not fall through to normal dispatch).
func (d *Dispatcher) handleControlVerb(req taskRequest) bool {
	switch req.task.Command {
	case verbStop:
		// Answer every task already queued before stopping the components
		// those tasks address.
		for draining := true; draining; {
			select {
			case pending := <-d.tasks:
				if pending.task.Command == verbStop {
					pending.reply <- Response{Status: OK, Value: "stopped"}
				} else if !d.handleControlVerb(pending) {
					pending.reply <- d.execute(pending.task)
				}
			default:
				draining = false
			}
		}
		d.mu.RLock()
		components := make([]Component, 0, len(d.components))
		for _, c := range d.components {
			components = append(components, c)
		}
		d.mu.RUnlock()
		for _, c := range components {
			if c.Stop != nil {
				_ = c.Stop()
			}
		}
		close(d.stopped)
		req.reply <- Response{Status: OK, Value: "stopped"}
		return true
	case verbComponents:
		d.mu.RLock()
		names := make([]string, 0, len(d.components))
		for name := range d.components {
			names = append(names, name)
		}
		d.mu.RUnlock()
		req.reply <- Response{Status: OK, Value: names}
		return true
	}
	return false
}

// execute resolves the component, recovers any panic at this boundary, and
// either hands the task to the scheduler or invokes the handler directly.
func (d *Dispatcher) execute(t Task) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			if d.logger != nil {
				d.logger.Error("component panicked", "component", t.Component, "command", t.Command, "recovered", r)
			}
			resp = Response{Status: NOK, Value: fmt.Sprintf("internal error: %v", r)}
		}
	}()

	if hasSchedulingKeys(t.Kwargs) {
		return d.scheduleTask(t)
	}

	d.mu.RLock()
	comp, ok := d.components[t.Component]
	d.mu.RUnlock()
	if !ok {
		return Response{Status: NOK, Value: fmt.Sprintf("unknown component %q", t.Component)}
	}

	value, err := comp.Handle(t.Command, t.Kwargs)
	if err != nil {
		if cat, found := perrors.CategoryOf(err); found && d.logger != nil {
			d.logger.Warn("command failed", "component", t.Component, "command", t.Command, "category", cat, "err", err)
		}
		return Response{Status: NOK, Value: err.Error()}
	}
	return Response{Status: OK, Value: value}
}

func hasSchedulingKeys(kwargs map[string]any) bool {
	for _, k := range schedulingKeys {
		if _, ok := kwargs[k]; ok {
			return true
		}
	}
	return false
}

// scheduleTask strips scheduling kwargs and hands the remaining payload to
// the scheduler (spec §4.1, §6).
func (d *Dispatcher) scheduleTask(t Task) Response {
	if d.scheduler == nil {
		return Response{Status: NOK, Value: "scheduler not configured"}
	}

	kwargs := make(map[string]any, len(t.Kwargs))
	for k, v := range t.Kwargs {
		kwargs[k] = v
	}

	atTime := time.Now()
	if raw, ok := kwargs["at_time"]; ok {
		if s, ok := raw.(string); ok {
			if parsed, err := time.Parse(time.RFC3339, s); err == nil {
				atTime = parsed
			}
		}
		delete(kwargs, "at_time")
	}

	var interval *time.Duration
	if raw, ok := kwargs["interval"]; ok {
		if secs, ok := toFloat(raw); ok {
			d := time.Duration(secs * float64(time.Second))
			interval = &d
		}
		delete(kwargs, "interval")
	}

	var endTime *time.Time
	if raw, ok := kwargs["end_time"]; ok {
		if s, ok := raw.(string); ok {
			if parsed, err := time.Parse(time.RFC3339, s); err == nil {
				endTime = &parsed
			}
		}
		delete(kwargs, "end_time")
	}

	d.scheduler.Add(atTime, schedulerPayload(t.Command, t.Component, kwargs), interval, endTime)
	return Response{Status: OK, Value: "scheduled"}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

func schedulerPayload(command, component string, kwargs map[string]any) scheduler.Payload {
	return scheduler.Payload{Command: command, Component: component, Kwargs: kwargs}
}

// drainScheduledJobs executes every runnable job as if submitted directly,
// without returning results anywhere — scheduled results are only logged
// (spec §4.1).
func (d *Dispatcher) drainScheduledJobs() {
	if d.scheduler == nil {
		return
	}
	for _, job := range d.scheduler.RunnableJobs() {
		resp := d.execute(Task{Command: job.Payload.Command, Component: job.Payload.Component, Kwargs: job.Payload.Kwargs})
		d.logger.Info("scheduled job executed", "job_id", job.ID, "status", resp.Status, "value", resp.Value)
	}
}

// Wait blocks until the dispatcher has fully stopped, or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
