package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/custodia-labs/quarry/internal/core/domain"
	"github.com/custodia-labs/quarry/internal/core/ports/driving"
	"github.com/custodia-labs/quarry/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

// Scheduler runs sync passes over every configured source on a cron schedule.
type Scheduler struct {
	schedule cron.Schedule
	agg      driving.AggregatorService
	sources  []string

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
	busy    sync.Mutex
}

// NewScheduler parses spec, a standard cron expression or a descriptor such
// as "@every 30m", and creates a scheduler syncing sources.
func NewScheduler(spec string, agg driving.AggregatorService, sources []string) (*Scheduler, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid sync schedule %q: %w", domain.ErrConfig, spec, err)
	}
	return &Scheduler{
		schedule: schedule,
		agg:      agg,
		sources:  sources,
	}, nil
}

// Start begins the scheduler loop. This method blocks until Stop is called
// or ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.mu.Unlock()

	logger.Info("Scheduler started for %d sources", len(s.sources))
	for {
		next := s.schedule.Next(time.Now())
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			_ = s.Stop()
			return ctx.Err()
		case <-stopCh:
			timer.Stop()
			return nil
		case <-timer.C:
			s.runSync(ctx)
		}
	}
}

// Stop gracefully shuts down the scheduler and waits for a running pass.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// runSync starts a pass unless the previous one is still running.
func (s *Scheduler) runSync(ctx context.Context) {
	if !s.busy.TryLock() {
		logger.Debug("Previous sync still running, skipping")
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.busy.Unlock()

		report := s.agg.Sync(ctx, s.sources)
		for source, msg := range report.Errors {
			logger.Warn("Scheduled sync of %s failed: %s", source, msg)
		}
		logger.Info("Scheduled sync finished: %d ok, %d failed", len(report.Results), len(report.Errors))
	}()
}
