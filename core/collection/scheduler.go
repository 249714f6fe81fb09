package collection

import (
	"context"
	"errors"
	"sync"
	"time"

	"melodex/logger"
)

// Scheduler fires a full reindex on a fixed period, with a configurable
// delay before the first run. A cycle still running when the next firing
// is due causes that firing to be skipped, never queued.
type Scheduler struct {
	indexer      *Indexer
	interval     time.Duration
	initialDelay time.Duration

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewScheduler creates a scan scheduler around the indexer.
func NewScheduler(indexer *Indexer, interval, initialDelay time.Duration) *Scheduler {
	return &Scheduler{
		indexer:      indexer,
		interval:     interval,
		initialDelay: initialDelay,
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// Start launches the scheduling loop in the background. It runs until
// Stop is called or ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	go s.run(ctx)
}

// Stop terminates the scheduling loop and waits for it to exit. An
// in-flight reindex cycle is not interrupted.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	logger.Info("Scan scheduler started",
		logger.Duration("interval", s.interval),
		logger.Duration("initialDelay", s.initialDelay))

	timer := time.NewTimer(s.initialDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
		s.fire(ctx)
	case <-s.stop:
		return
	case <-ctx.Done():
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.fire(ctx)
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) fire(ctx context.Context) {
	err := s.indexer.Reindex(ctx)
	switch {
	case errors.Is(err, ErrAlreadyScanning):
		logger.Info("Skipping scheduled reindex, previous cycle still running")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		logger.Info("Scheduled reindex cancelled")
	case err != nil:
		logger.Error("Scheduled reindex failed", logger.ErrorField(err))
	}
}
