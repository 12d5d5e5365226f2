package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/gridcheck/internal/common"
	"github.com/ternarybob/gridcheck/internal/interfaces"
)

// Service implements SchedulerService for a single suite task
type Service struct {
	cron   *cron.Cron
	logger arbor.ILogger

	mu           sync.Mutex // Protects the fields below
	running      bool
	isProcessing bool
	schedule     string
	task         func(ctx context.Context) error
	cronID       cron.EntryID
	runCount     int
	skipped      int
	lastRun      *time.Time
	lastError    string

	baseCtx    context.Context
	baseCancel context.CancelFunc
	wg         sync.WaitGroup
}

// Compile-time assertion
var _ interfaces.SchedulerService = (*Service)(nil)

// NewService creates a new scheduler service
func NewService(logger arbor.ILogger) *Service {
	return &Service{
		cron:   cron.New(),
		logger: logger,
	}
}

// Start begins the scheduler with the given cron expression
func (s *Service) Start(cronExpr string, task func(ctx context.Context) error) error {
	if err := common.ValidateSchedule(cronExpr); err != nil {
		return fmt.Errorf("invalid schedule: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	cronID, err := s.cron.AddFunc(cronExpr, s.executeTask)
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	s.baseCtx, s.baseCancel = context.WithCancel(context.Background())
	s.cronID = cronID
	s.schedule = cronExpr
	s.task = task
	s.cron.Start()
	s.running = true

	s.logger.Info().
		Str("cron_expr", cronExpr).
		Msg("Scheduler started")
	return nil
}

// TriggerNow runs the task immediately in the background
func (s *Service) TriggerNow() error {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()
	if !running {
		return fmt.Errorf("scheduler not running")
	}

	s.logger.Info().Msg("Manual run trigger requested")
	go s.executeTask()
	return nil
}

// Stop halts the scheduler
func (s *Service) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	cancel := s.baseCancel
	s.mu.Unlock()

	// Waits for cron-started jobs, then for manually triggered ones
	cronCtx := s.cron.Stop()
	cancel()
	<-cronCtx.Done()
	s.wg.Wait()

	s.logger.Info().Msg("Scheduler stopped")
	return nil
}

// IsRunning returns true if scheduler is active
func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Status returns the scheduler state and the next planned run
func (s *Service) Status() interfaces.ScheduleStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	var nextRun *time.Time
	if s.running {
		if entry := s.cron.Entry(s.cronID); entry.Valid() {
			next := entry.Next
			nextRun = &next
		}
	}

	return interfaces.ScheduleStatus{
		Schedule:  s.schedule,
		Running:   s.running,
		RunCount:  s.runCount,
		Skipped:   s.skipped,
		LastRun:   s.lastRun,
		NextRun:   nextRun,
		LastError: s.lastError,
	}
}

// executeTask wraps a run with the overlap guard, panic recovery and status tracking
func (s *Service) executeTask() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	if s.isProcessing {
		s.skipped++
		s.mu.Unlock()
		s.logger.Warn().Msg("Previous run still in progress, skipping this cycle")
		return
	}
	s.isProcessing = true
	s.wg.Add(1)
	task := s.task
	ctx := s.baseCtx
	s.mu.Unlock()

	start := time.Now()
	var err error

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("PANIC RECOVERED in scheduled run")
			err = fmt.Errorf("panic: %v", r)
		}

		completionTime := time.Now()
		s.mu.Lock()
		s.isProcessing = false
		s.runCount++
		s.lastRun = &completionTime
		if err != nil {
			s.lastError = err.Error()
		} else {
			s.lastError = ""
		}
		s.mu.Unlock()
		s.wg.Done()

		if err != nil {
			s.logger.Error().
				Err(err).
				Dur("duration", time.Since(start)).
				Msg("Scheduled run failed")
		} else {
			s.logger.Info().
				Dur("duration", time.Since(start)).
				Msg("Scheduled run completed")
		}
	}()

	s.logger.Info().Msg("Scheduled run started")
	err = task(ctx)
}
