package scheduler

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// Sweeper drops expired state and reports how many entries were removed.
type Sweeper interface {
	Sweep() int
}

// Scheduler periodically sweeps idle sessions.
type Scheduler struct {
	scheduler *gocron.Scheduler
	sweeper   Sweeper
	interval  time.Duration
	log       *slog.Logger
}

// New creates a new Scheduler.
func New(sweeper Sweeper, interval time.Duration, log *slog.Logger) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		sweeper:   sweeper,
		interval:  interval,
		log:       log,
	}
}

// Start schedules the sweep job and starts the underlying scheduler.
// A non-positive interval disables sweeping.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		s.log.Info("scheduler: session sweep disabled")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).Do(s.runSweep)
	if err != nil {
		return fmt.Errorf("schedule session sweep: %w", err)
	}

	s.scheduler.StartAsync()
	return nil
}

func (s *Scheduler) runSweep() {
	if removed := s.sweeper.Sweep(); removed > 0 {
		s.log.Info("scheduler: swept idle sessions", "removed", removed)
	}
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
