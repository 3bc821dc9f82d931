package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunnableJobFiresOnce(t *testing.T) {
	s := New()
	job := s.Add(time.Now().Add(10*time.Millisecond), Payload{Command: "record"}, nil, nil)
	assert.False(t, job.HasRun, "a one-shot job is stored but not dispatched before its at_time")

	time.Sleep(20 * time.Millisecond)
	runnable := s.RunnableJobs()
	require.Len(t, runnable, 1)
	assert.Equal(t, job.ID, runnable[0].ID)

	assert.Empty(t, s.RunnableJobs(), "a one-shot job must not run twice")
}

func TestFastForwardAcrossMissedIntervalSlots(t *testing.T) {
	s := New()
	interval := 100 * time.Millisecond
	at := time.Now().Add(-350 * time.Millisecond)
	job := s.Add(at, Payload{Command: "tick"}, &interval, nil)

	runnable := s.RunnableJobs()
	require.Len(t, runnable, 1, "a missed interval job fires exactly once per drain, not once per missed slot")

	got, ok := s.GetJob(job.ID)
	require.True(t, ok)
	assert.True(t, got.AtTime.After(time.Now()), "next at_time must be in the future after fast-forwarding")
}

func TestQuietPeriodSuppressesRunnableJobs(t *testing.T) {
	s := New()
	now := time.Now()
	start := now.Add(-time.Minute).Format("15:04")
	end := now.Add(time.Minute).Format("15:04")
	require.NoError(t, s.SetQuietPeriod(start, end))

	s.Add(now.Add(10*time.Millisecond), Payload{Command: "record"}, nil, nil)
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, s.RunnableJobs(), "no job may run during the quiet period")
}

func TestQuietPeriodCrossingMidnight(t *testing.T) {
	s := New()
	require.NoError(t, s.SetQuietPeriod("23:00", "01:00"))

	lateNight := time.Date(2026, 1, 1, 23, 30, 0, 0, time.Local)
	earlyMorning := time.Date(2026, 1, 2, 0, 30, 0, 0, time.Local)
	midday := time.Date(2026, 1, 2, 12, 0, 0, 0, time.Local)

	assert.True(t, s.inQuietPeriod(lateNight))
	assert.True(t, s.inQuietPeriod(earlyMorning))
	assert.False(t, s.inQuietPeriod(midday))
}

func TestSuspendUnsuspend(t *testing.T) {
	s := New()
	job := s.Add(time.Now().Add(10*time.Millisecond), Payload{Command: "record"}, nil, nil)

	s.Suspend(job.ID)
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, s.RunnableJobs())

	s.Unsuspend(job.ID)
	assert.Len(t, s.RunnableJobs(), 1)
}

func TestInvalidSpecLogsAndMarksHasRun(t *testing.T) {
	s := New()
	interval := time.Second
	end := time.Now().Add(-time.Hour)
	job := s.Add(time.Now(), Payload{Command: "record"}, &interval, &end)
	assert.True(t, job.HasRun, "at_time >= end_time must be rejected without panicking")
}
