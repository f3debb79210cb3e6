// Package scheduler runs the reporting pipeline on an in-process cron
// schedule for serve mode. One-shot runs keep using an external scheduler;
// this exists so serve mode can produce reports without one.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/specto/internal/common"
)

// RunFunc executes one reporting run.
type RunFunc func(ctx context.Context) error

// Status reports the scheduler's view of the report job.
type Status struct {
	Running   bool       `json:"running"`
	Schedule  string     `json:"schedule"`
	IsRunning bool       `json:"is_running"` // a run is currently executing
	LastRun   *time.Time `json:"last_run,omitempty"`
	NextRun   *time.Time `json:"next_run,omitempty"`
	LastError string     `json:"last_error,omitempty"`
}

// Service triggers report runs on a cron schedule.
type Service struct {
	cron     *cron.Cron
	run      RunFunc
	schedule string
	logger   arbor.ILogger

	mu        sync.Mutex // protects the fields below
	entryID   cron.EntryID
	running   bool
	isRunning bool
	lastRun   *time.Time
	lastError string

	execMu sync.Mutex // prevents overlapping runs
}

// NewService creates a scheduler for the given run function.
func NewService(run RunFunc, logger arbor.ILogger) *Service {
	return &Service{
		cron:   cron.New(),
		run:    run,
		logger: logger,
	}
}

// Start begins triggering runs on the given cron expression.
func (s *Service) Start(cronExpr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	if err := common.ValidateSchedule(cronExpr); err != nil {
		return fmt.Errorf("invalid schedule: %w", err)
	}

	entryID, err := s.cron.AddFunc(cronExpr, s.executeRun)
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	s.entryID = entryID
	s.schedule = cronExpr
	s.cron.Start()
	s.running = true

	if s.logger != nil {
		s.logger.Info().
			Str("schedule", cronExpr).
			Msg("Report scheduler started")
	}

	return nil
}

// Stop halts the scheduler and waits for an in-flight run to finish.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	ctx := s.cron.Stop()
	<-ctx.Done()

	// Block until any executing run completes
	s.execMu.Lock()
	s.execMu.Unlock()

	if s.logger != nil {
		s.logger.Info().Msg("Report scheduler stopped")
	}
}

// TriggerNow runs the report immediately in the background.
func (s *Service) TriggerNow() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("a report run is already executing")
	}
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.Info().Msg("Manual report run triggered")
	}
	go s.executeRun()
	return nil
}

// Status returns the current scheduler state.
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := Status{
		Running:   s.running,
		Schedule:  s.schedule,
		IsRunning: s.isRunning,
		LastRun:   s.lastRun,
		LastError: s.lastError,
	}

	if s.running {
		for _, entry := range s.cron.Entries() {
			if entry.ID == s.entryID {
				next := entry.Next
				status.NextRun = &next
				break
			}
		}
	}

	return status
}

// executeRun wraps a run with overlap prevention, panic recovery, and
// status tracking.
func (s *Service) executeRun() {
	defer func() {
		if r := recover(); r != nil {
			if s.logger != nil {
				s.logger.Error().
					Str("panic", fmt.Sprintf("%v", r)).
					Msg("PANIC RECOVERED in report run")
			}
			s.mu.Lock()
			s.isRunning = false
			s.lastError = fmt.Sprintf("panic: %v", r)
			s.mu.Unlock()
		}
	}()

	s.execMu.Lock()
	defer s.execMu.Unlock()

	s.mu.Lock()
	s.isRunning = true
	s.mu.Unlock()

	started := time.Now()
	err := s.run(context.Background())
	completed := time.Now()

	s.mu.Lock()
	s.isRunning = false
	s.lastRun = &completed
	if err != nil {
		s.lastError = err.Error()
	} else {
		s.lastError = ""
	}
	s.mu.Unlock()

	if s.logger != nil {
		if err != nil {
			s.logger.Error().
				Err(err).
				Dur("duration", time.Since(started)).
				Msg("Scheduled report run failed")
		} else {
			s.logger.Info().
				Dur("duration", time.Since(started)).
				Msg("Scheduled report run completed")
		}
	}
}
