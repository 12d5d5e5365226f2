package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/gridcheck/internal/interfaces"
	"github.com/ternarybob/gridcheck/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// RunStorage implements the ReportStorage interface for Badger
type RunStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// Compile-time assertion
var _ interfaces.ReportStorage = (*RunStorage)(nil)

// NewRunStorage opens the history database and returns a run storage over it
func NewRunStorage(logger arbor.ILogger, db *BadgerDB) *RunStorage {
	return &RunStorage{
		db:     db,
		logger: logger,
	}
}

// SaveRun inserts or replaces a run summary
func (s *RunStorage) SaveRun(ctx context.Context, summary *models.RunSummary) error {
	if summary.ID == "" {
		return fmt.Errorf("run summary has no id")
	}
	if err := s.db.Store().Upsert(summary.ID, summary); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	s.logger.Debug().
		Str("run_id", summary.ID).
		Int("passed", summary.Passed).
		Int("failed", summary.Failed).
		Msg("Run saved to history")
	return nil
}

// GetRun retrieves a run summary by id
func (s *RunStorage) GetRun(ctx context.Context, id string) (*models.RunSummary, error) {
	var summary models.RunSummary
	err := s.db.Store().Get(id, &summary)
	if err == badgerhold.ErrNotFound {
		return nil, interfaces.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &summary, nil
}

// ListRuns returns the newest runs first
func (s *RunStorage) ListRuns(ctx context.Context, testID string, limit int) ([]*models.RunSummary, error) {
	query := badgerhold.Where("ID").Ne("")
	if testID != "" {
		query = badgerhold.Where("TestID").Eq(testID).Index("TestID")
	}
	query = query.SortBy("StartedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var runs []models.RunSummary
	if err := s.db.Store().Find(&runs, query); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	result := make([]*models.RunSummary, len(runs))
	for i := range runs {
		result[i] = &runs[i]
	}
	return result, nil
}

// DeleteRun removes a run summary
func (s *RunStorage) DeleteRun(ctx context.Context, id string) error {
	err := s.db.Store().Delete(id, models.RunSummary{})
	if err == badgerhold.ErrNotFound {
		return interfaces.ErrRunNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	return nil
}

// PruneRuns keeps the newest keep runs; keep <= 0 keeps everything
func (s *RunStorage) PruneRuns(ctx context.Context, keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}

	var stale []models.RunSummary
	query := badgerhold.Where("ID").Ne("").SortBy("StartedAt").Reverse().Skip(keep)
	if err := s.db.Store().Find(&stale, query); err != nil {
		return 0, fmt.Errorf("failed to find stale runs: %w", err)
	}

	deleted := 0
	for _, run := range stale {
		if err := ctx.Err(); err != nil {
			return deleted, err
		}
		if err := s.db.Store().Delete(run.ID, models.RunSummary{}); err != nil {
			return deleted, fmt.Errorf("failed to delete run %s: %w", run.ID, err)
		}
		deleted++
	}

	if deleted > 0 {
		s.db.CollectGarbage()
		s.logger.Info().Int("deleted", deleted).Int("kept", keep).Msg("Run history pruned")
	}
	return deleted, nil
}

// Close closes the underlying database
func (s *RunStorage) Close() error {
	return s.db.Close()
}
