// Package scheduler refreshes market prices on the user-selected interval.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/atharvakonge/paper-trading-simulator/internal/market"
)

// RefreshTimeout bounds one refresh run.
const RefreshTimeout = 30 * time.Second

// Scheduler runs Source.Refresh every N minutes.
type Scheduler struct {
	Cron   *cron.Cron
	Source market.Source

	mu        sync.Mutex
	entry     cron.EntryID
	frequency int
	listeners []func(error)
	log       *zap.SugaredLogger
}

// NewScheduler creates a stopped scheduler for source.
func NewScheduler(source market.Source, log *zap.SugaredLogger) *Scheduler {
	return &Scheduler{
		Cron:   cron.New(),
		Source: source,
		log:    log,
	}
}

// Every is the cron expression for a frequency in minutes.
func Every(minutes int) string {
	return fmt.Sprintf("@every %dm", minutes)
}

// Start registers the refresh job and starts the cron loop.
func (s *Scheduler) Start(minutes int) error {
	if err := s.Reschedule(minutes); err != nil {
		return err
	}
	s.Cron.Start()
	s.log.Infow("scheduler started", "source", s.Source.Name(), "every_minutes", minutes)
	return nil
}

// Reschedule replaces the refresh job with one running every minutes.
func (s *Scheduler) Reschedule(minutes int) error {
	if minutes < 1 {
		return fmt.Errorf("refresh frequency must be at least one minute, got %d", minutes)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entry != 0 && s.frequency == minutes {
		return nil
	}
	id, err := s.Cron.AddFunc(Every(minutes), s.refreshJob)
	if err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	if s.entry != 0 {
		s.Cron.Remove(s.entry)
	}
	s.entry = id
	s.frequency = minutes
	return nil
}

// AddJob runs fn every interval on the same cron loop as the refresh job.
func (s *Scheduler) AddJob(interval time.Duration, fn func()) error {
	if interval < time.Second {
		return fmt.Errorf("job interval must be at least one second, got %s", interval)
	}
	if _, err := s.Cron.AddFunc("@every "+interval.String(), fn); err != nil {
		return fmt.Errorf("register job: %w", err)
	}
	return nil
}

// Frequency is the current interval in minutes, 0 before Start.
func (s *Scheduler) Frequency() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frequency
}

// OnRefresh registers fn to run after every refresh with its result.
func (s *Scheduler) OnRefresh(fn func(error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// RunNow refreshes immediately on the caller's goroutine.
func (s *Scheduler) RunNow(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, RefreshTimeout)
	defer cancel()

	err := s.Source.Refresh(ctx)
	if err != nil {
		s.log.Errorw("price refresh failed", "source", s.Source.Name(), "error", err)
	} else {
		s.log.Debugw("prices refreshed", "source", s.Source.Name(), "symbols", s.Source.Book().Len())
	}

	s.mu.Lock()
	listeners := s.listeners
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(err)
	}
	return err
}

func (s *Scheduler) refreshJob() {
	_ = s.RunNow(context.Background())
}

// Stop stops the cron loop and waits for a running refresh to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info("scheduler stopped")
}
