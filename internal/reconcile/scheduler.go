package reconcile

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/melih-ucgun/calswitch/internal/core"
)

// Refresher refetches the calendar list; the query's refetch listeners
// reconcile it into the Syncer.
type Refresher interface {
	Refetch(ctx context.Context) ([]core.Selection, error)
}

// Scheduler invalidates and refetches the calendar list on a cron schedule.
type Scheduler struct {
	cron        *cron.Cron
	invalidator core.Invalidator
	refresher   Refresher
	logger      core.Logger
	timeout     time.Duration

	mu      sync.Mutex
	runs    int
	lastErr error
}

// New parses schedule (standard five-field expression or descriptors like "@every 1m").
func New(schedule string, inv core.Invalidator, refresher Refresher, logger core.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:        cron.New(),
		invalidator: inv,
		refresher:   refresher,
		logger:      logger,
		timeout:     30 * time.Second,
	}
	if _, err := s.cron.AddFunc(schedule, func() { _ = s.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}
	return s, nil
}

// RunOnce performs one reconcile pass.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if s.invalidator != nil {
		if err := s.invalidator.Invalidate(ctx, core.IntegrationsQueryKey); err != nil {
			s.logger.Warn("scheduled invalidation failed", "error", err)
		}
	}
	items, err := s.refresher.Refetch(ctx)

	s.mu.Lock()
	s.runs++
	s.lastErr = err
	s.mu.Unlock()

	if err != nil {
		s.logger.Error(fmt.Sprintf("Reconcile failed: %v", err))
		return err
	}
	s.logger.Debug(fmt.Sprintf("Reconciled %d calendars", len(items)))
	return nil
}

// Start runs the schedule until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
}

// Next returns the next scheduled run.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// Stats returns the number of runs and the last error.
func (s *Scheduler) Stats() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs, s.lastErr
}
