package interfaces

import (
	"context"
	"errors"

	"github.com/ternarybob/gridcheck/internal/models"
)

// ErrRunNotFound is returned when a run summary is not in storage
var ErrRunNotFound = errors.New("run not found")

// ReportStorage persists run summaries for history listing
type ReportStorage interface {
	SaveRun(ctx context.Context, summary *models.RunSummary) error
	GetRun(ctx context.Context, id string) (*models.RunSummary, error)

	// ListRuns returns the most recent runs first, at most limit entries (0 = all).
	// An empty testID lists runs of every test.
	ListRuns(ctx context.Context, testID string, limit int) ([]*models.RunSummary, error)

	DeleteRun(ctx context.Context, id string) error

	// PruneRuns deletes all but the newest keep runs and returns how many were deleted
	PruneRuns(ctx context.Context, keep int) (int, error)
	Close() error
}
