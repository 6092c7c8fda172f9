package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tmahesh/ledgerkeep/internal/database/repository"
)

// Scheduler owns the periodic catch-up work: backfilling every recurring
// loan series and running the notifier. It replaces fire-and-forget timers
// with a loop that can be started, stopped, and awaited, so tests drive
// RunOnce directly. Passes are idempotent; an overlapping manual RunOnce is
// harmless.
type Scheduler struct {
	Loans     *repository.LoanRepo
	Generator *Generator
	Notifier  *Notifier
	Log       *logrus.Logger

	Interval time.Duration // default one hour

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// RunOnce executes a single sweep: one backfill pass over every recurring
// loan, then one notifier tick. Per-loan failures are logged and do not
// stop the sweep.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	loans, err := s.Loans.List(ctx, repository.LoanFilters{Recurring: true})
	if err != nil {
		return fmt.Errorf("sweep: load recurring loans: %w", err)
	}

	// One pass per series is enough; every member carries the series id.
	seen := map[string]bool{}
	for _, l := range loans {
		if l.SeriesID != nil {
			if seen[*l.SeriesID] {
				continue
			}
			seen[*l.SeriesID] = true
		}
		if _, err := s.Generator.BackfillAndSchedule(ctx, l); err != nil {
			s.Log.WithError(err).WithField("loan", l.ID).Warn("sweep: backfill failed")
		}
	}

	if err := s.Notifier.Tick(ctx); err != nil {
		return fmt.Errorf("sweep: %w", err)
	}
	return nil
}

// Start launches the periodic loop. The first sweep runs immediately.
// Starting an already-running scheduler is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	interval := s.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			if err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
				s.Log.WithError(err).Warn("sweep failed")
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop cancels the loop and waits for the in-flight sweep to finish.
// Stopping a scheduler that never started is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}
