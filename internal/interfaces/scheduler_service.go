package interfaces

import (
	"context"
	"time"
)

// ScheduleStatus describes the scheduler's current state
type ScheduleStatus struct {
	Schedule  string
	Running   bool
	RunCount  int
	Skipped   int
	LastRun   *time.Time
	NextRun   *time.Time
	LastError string
}

// SchedulerService repeats a suite run on a cron schedule. Runs never overlap.
type SchedulerService interface {
	// Start registers task under cronExpr and starts the scheduler
	Start(cronExpr string, task func(ctx context.Context) error) error

	// TriggerNow runs the task immediately in the background unless a run is in flight
	TriggerNow() error

	// Stop halts scheduling, cancels an in-flight run and waits for it to return
	Stop() error

	IsRunning() bool
	Status() ScheduleStatus
}
