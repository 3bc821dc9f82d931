// Package scheduler implements the Piccolo time-triggered job list (spec
// §4.2): one-shot and periodic jobs with optional end time, a daily quiet
// period, and per-job suspend. Its job-list/mutex shape is grounded on the
// teacher's internal/analysis/processor.JobQueue, trimmed of retry/backoff
// machinery the spec does not call for (jobs here either run once or not at
// all on a given dispatcher tick; the dispatcher owns failure handling).
package scheduler

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/piccolo2go/piccolo/internal/logging"
)

// Payload is the opaque (command, component, kwargs) tuple a job carries; the
// dispatcher supplies and interprets it.
type Payload struct {
	Command   string
	Component string
	Kwargs    map[string]any
}

// Job is one scheduled entry. Zero time.Time for EndTime means "no end".
type Job struct {
	ID        string
	AtTime    time.Time
	Interval  time.Duration // zero means one-shot
	EndTime   time.Time
	Payload   Payload
	HasRun    bool
	Suspended bool
}

// Scheduler is an append-only job list guarded by a single mutex, matching
// the spec's "single process, not process-to-process" concurrency scope.
type Scheduler struct {
	mu   sync.Mutex
	jobs []*Job

	quietStart, quietEnd time.Duration // time-of-day offsets; both zero means no quiet period
	hasQuiet             bool

	logger *slog.Logger
}

func New() *Scheduler {
	return &Scheduler{logger: logging.ForService("scheduler")}
}

// SetQuietPeriod configures the daily window during which no job is
// dispatched. Passing two empty strings clears it.
func (s *Scheduler) SetQuietPeriod(start, end string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if start == "" && end == "" {
		s.hasQuiet = false
		return nil
	}
	st, err := parseTimeOfDay(start)
	if err != nil {
		return fmt.Errorf("quiet start: %w", err)
	}
	en, err := parseTimeOfDay(end)
	if err != nil {
		return fmt.Errorf("quiet end: %w", err)
	}
	s.quietStart, s.quietEnd = st, en
	s.hasQuiet = true
	return nil
}

func parseTimeOfDay(s string) (time.Duration, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute, nil
}

// inQuietPeriod reports whether wall-clock time t falls in the configured
// quiet window, shifting the end by a day when the window crosses midnight.
func (s *Scheduler) inQuietPeriod(t time.Time) bool {
	if !s.hasQuiet {
		return false
	}
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	offset := t.Sub(midnight)

	start, end := s.quietStart, s.quietEnd
	if start > end {
		// crosses midnight: window is [start, 24h) ∪ [0, end)
		return offset >= start || offset < end
	}
	return offset >= start && offset < end
}

// Add appends a new job. An invalid spec (interval+end_time with at_time >=
// end_time) is logged and marked has_run rather than rejected, matching
// §4.2's "log a warning, do not raise" rule. Past-time one-shot jobs are
// stored but immediately marked has_run since the invariant cannot be
// satisfied at insertion time.
func (s *Scheduler) Add(atTime time.Time, payload Payload, interval *time.Duration, absoluteEnd *time.Time) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	job := &Job{
		ID:      uuid.NewString(),
		AtTime:  atTime,
		Payload: payload,
	}
	if interval != nil {
		job.Interval = *interval
	}
	if absoluteEnd != nil {
		job.EndTime = *absoluteEnd
	}

	if job.Interval > 0 && !job.EndTime.IsZero() && !job.AtTime.Before(job.EndTime) {
		if s.logger != nil {
			s.logger.Warn("scheduler: invalid job spec, at_time >= end_time", "job_id", job.ID)
		}
		job.HasRun = true
	}

	now := time.Now()
	if job.Interval == 0 && job.AtTime.Before(now) {
		job.HasRun = true
	}

	s.jobs = append(s.jobs, job)
	return job
}

// runnable reports whether job should fire at now, per spec.md's invariant:
// now >= at_time && !suspended && !has_run && (end_time == zero || now < end_time).
func runnable(job *Job, now time.Time) bool {
	if job.Suspended || job.HasRun {
		return false
	}
	if now.Before(job.AtTime) {
		return false
	}
	if !job.EndTime.IsZero() && !now.Before(job.EndTime) {
		return false
	}
	return true
}

// RunnableJobs returns every currently runnable job, in insertion order, and
// advances each interval job's at_time by fast-forwarding across any missed
// slots — a restart (or a slow dispatcher tick) must not replay every missed
// instant. Returns an empty slice during the quiet period without mutating
// any job's has_run.
func (s *Scheduler) RunnableJobs() []*Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if s.inQuietPeriod(now) {
		return nil
	}

	var out []*Job
	for _, job := range s.jobs {
		if !runnable(job, now) {
			continue
		}
		out = append(out, job)

		if job.Interval > 0 {
			k := int64(now.Sub(job.AtTime)/job.Interval) + 1
			job.AtTime = job.AtTime.Add(time.Duration(k) * job.Interval)
			if !job.EndTime.IsZero() && !job.AtTime.Before(job.EndTime) {
				job.HasRun = true
			}
		} else {
			job.HasRun = true
		}
	}
	return out
}

// Suspend marks a job as suspended; unsuspend clears it. Both are no-ops on
// an unknown id.
func (s *Scheduler) Suspend(jid string)   { s.setSuspended(jid, true) }
func (s *Scheduler) Unsuspend(jid string) { s.setSuspended(jid, false) }

func (s *Scheduler) setSuspended(jid string, v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, job := range s.jobs {
		if job.ID == jid {
			job.Suspended = v
			return
		}
	}
}

// GetJob looks up a job by id.
func (s *Scheduler) GetJob(jid string) (*Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, job := range s.jobs {
		if job.ID == jid {
			cp := *job
			return &cp, true
		}
	}
	return nil, false
}
