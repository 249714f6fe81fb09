package collection

import (
	"context"
	"testing"
	"time"
)

func TestSchedulerRunsInitialCycle(t *testing.T) {
	env := newTestEnv(t)

	scheduler := NewScheduler(env.indexer, time.Hour, 0)
	scheduler.Start(context.Background())
	defer scheduler.Stop()

	deadline := time.After(5 * time.Second)
	for {
		if !env.indexer.Status().LastRunAt.IsZero() {
			return
		}
		select {
		case <-deadline:
			t.Fatal("scheduler never ran the initial reindex")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestSchedulerRunsPeriodically(t *testing.T) {
	env := newTestEnv(t)

	scheduler := NewScheduler(env.indexer, 20*time.Millisecond, 0)
	scheduler.Start(context.Background())
	defer scheduler.Stop()

	var first time.Time
	deadline := time.After(5 * time.Second)
	for {
		status := env.indexer.Status()
		if first.IsZero() {
			first = status.LastRunAt
		} else if status.LastRunAt.After(first) {
			return
		}
		select {
		case <-deadline:
			t.Fatal("scheduler never fired a second cycle")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestSchedulerStopIsIdempotent(t *testing.T) {
	env := newTestEnv(t)

	scheduler := NewScheduler(env.indexer, time.Hour, time.Hour)
	scheduler.Start(context.Background())
	scheduler.Stop()
	scheduler.Stop()
}
