// Package metrics exposes prometheus counters and gauges for the control
// core's long-running actors: dispatcher ticks, scheduled jobs run,
// acquisitions, autointegration failures, and writer collisions. Grounded
// on the rest of the example pack's use of prometheus/client_golang for
// process-level instrumentation (the teacher repo has no metrics surface
// of its own; this wiring follows the standard client_golang registry
// pattern used across the corpus).
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	DispatcherTicks = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "piccolo",
		Subsystem: "dispatcher",
		Name:      "ticks_total",
		Help:      "Number of idle-tick scheduler drains performed by the dispatcher.",
	})

	ScheduledJobsRun = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "piccolo",
		Subsystem: "scheduler",
		Name:      "jobs_run_total",
		Help:      "Number of scheduled jobs dispatched.",
	})

	Acquisitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "piccolo",
		Subsystem: "spectrometer",
		Name:      "acquisitions_total",
		Help:      "Number of spectra acquired, labeled by spectrometer and direction.",
	}, []string{"spectrometer", "direction"})

	AutointegrationFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "piccolo",
		Subsystem: "spectrometer",
		Name:      "autointegration_failures_total",
		Help:      "Number of autointegration runs that failed to find a target.",
	}, []string{"spectrometer"})

	WriterCollisions = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "piccolo",
		Subsystem: "output",
		Name:      "filename_collisions_total",
		Help:      "Number of output writes that had to increment seq to avoid overwriting an existing file.",
	})

	CoordinatorState = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "piccolo",
		Subsystem: "coordinator",
		Name:      "state",
		Help:      "Current coordinator state: 0=idle, 1=recording, 2=paused.",
	})
)

// Register adds every collector to reg. Call once at process startup.
func Register(reg *prometheus.Registry) error {
	collectors := []prometheus.Collector{
		DispatcherTicks,
		ScheduledJobsRun,
		Acquisitions,
		AutointegrationFailures,
		WriterCollisions,
		CoordinatorState,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
