package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// JobFunc is one scheduled unit of work. The context is cancelled after the job timeout.
type JobFunc func(ctx context.Context) error

// Poller pulls updated game snapshots through the engine
type Poller interface {
	PollGames(ctx context.Context) (int, error)
}

// Sweeper drops games that stopped receiving updates
type Sweeper interface {
	SweepStaleGames(ctx context.Context) ([]string, error)
}

// Refresher reloads the strategy catalog
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Scheduler manages the engine's periodic jobs
type Scheduler struct {
	cron   *cron.Cron
	logger *logrus.Logger
	ctx    context.Context
	cancel context.CancelFunc

	mu              sync.RWMutex
	isRunning       bool
	jobIDs          map[string]cron.EntryID
	gracefulTimeout time.Duration
}

// NewScheduler creates a new scheduler. Overlapping runs of the same job are skipped.
func NewScheduler(logger *logrus.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.Recover(cron.PrintfLogger(logger)), cron.SkipIfStillRunning(cron.PrintfLogger(logger))),
		),
		logger:          logger,
		ctx:             ctx,
		cancel:          cancel,
		jobIDs:          make(map[string]cron.EntryID),
		gracefulTimeout: 30 * time.Second,
	}
}

// AddJob schedules fn every interval. Each run gets a context bounded by timeout.
func (s *Scheduler) AddJob(name string, interval, timeout time.Duration, fn JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}
	if _, exists := s.jobIDs[name]; exists {
		return fmt.Errorf("job %s already scheduled", name)
	}
	if interval < time.Second {
		return fmt.Errorf("job %s: interval must be at least 1s, got %s", name, interval)
	}
	if timeout <= 0 || timeout > interval {
		timeout = interval
	}

	entry := s.logger.WithField("job", name)
	jobFunc := func() {
		ctx, cancel := context.WithTimeout(s.ctx, timeout)
		defer cancel()

		start := time.Now()
		if err := fn(ctx); err != nil {
			entry.WithError(err).Error("Scheduled job failed")
			return
		}
		entry.WithField("duration_ms", time.Since(start).Milliseconds()).Debug("Scheduled job completed")
	}

	entryID, err := s.cron.AddFunc(fmt.Sprintf("@every %s", interval), jobFunc)
	if err != nil {
		return fmt.Errorf("failed to add job %s: %w", name, err)
	}

	s.jobIDs[name] = entryID
	entry.WithField("interval", interval.String()).Info("Scheduled job")
	return nil
}

// ScheduleLivePolling polls updated games every interval
func (s *Scheduler) ScheduleLivePolling(interval time.Duration, poller Poller) error {
	return s.AddJob("live_poll", interval, interval, func(ctx context.Context) error {
		n, err := poller.PollGames(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			s.logger.WithField("games", n).Debug("Processed game snapshots")
		}
		return nil
	})
}

// ScheduleCatalogRefresh reloads strategies every interval
func (s *Scheduler) ScheduleCatalogRefresh(interval time.Duration, refresher Refresher) error {
	return s.AddJob("catalog_refresh", interval, interval, refresher.Refresh)
}

// ScheduleStaleSweep removes stale games every interval
func (s *Scheduler) ScheduleStaleSweep(interval time.Duration, sweeper Sweeper) error {
	return s.AddJob("stale_sweep", interval, interval, func(ctx context.Context) error {
		removed, err := sweeper.SweepStaleGames(ctx)
		if err != nil {
			return err
		}
		if len(removed) > 0 {
			s.logger.WithField("games", removed).Info("Removed stale games")
		}
		return nil
	})
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}
	if len(s.jobIDs) == 0 {
		return fmt.Errorf("no jobs scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("jobs", len(s.jobIDs)).Info("Scheduler started")
	return nil
}

// Stop cancels running jobs and waits for them to return, up to the graceful timeout
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	s.cancel()
	stopped := s.cron.Stop()
	s.isRunning = false

	select {
	case <-stopped.Done():
		s.logger.Info("Scheduler stopped")
		return nil
	case <-time.After(s.gracefulTimeout):
		return fmt.Errorf("scheduler jobs did not finish within %s", s.gracefulTimeout)
	}
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRun returns the time of the next scheduled job run
func (s *Scheduler) GetNextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return time.Time{}
	}

	nextRun := time.Time{}
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() && (nextRun.IsZero() || entry.Next.Before(nextRun)) {
			nextRun = entry.Next
		}
	}
	return nextRun
}

// Jobs returns the names of scheduled jobs
func (s *Scheduler) Jobs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.jobIDs))
	for name := range s.jobIDs {
		names = append(names, name)
	}
	return names
}

// RemoveJob removes a scheduled job
func (s *Scheduler) RemoveJob(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot remove job while scheduler is running")
	}
	id, ok := s.jobIDs[name]
	if !ok {
		return fmt.Errorf("job %s not found", name)
	}

	s.cron.Remove(id)
	delete(s.jobIDs, name)
	s.logger.WithField("job", name).Info("Removed job")
	return nil
}
