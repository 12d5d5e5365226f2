// -----------------------------------------------------------------------
// Last Modified: Monday, 19th October 2026 10:42:00 am
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package interfaces

import (
	"context"

	"github.com/ternarybob/gridcheck/internal/models"
)

// GridAccessor drives a single filterable, paginated grid bound to a page.
// It holds no state between calls; every mutating call blocks until the grid has settled.
type GridAccessor interface {
	// ApplyFilter sets one filter control and submits the grid filter form
	ApplyFilter(ctx context.Context, criterion models.FilterCriterion) error

	// ResetFilters clears all active filters and returns the settled row count
	ResetFilters(ctx context.Context) (int, error)

	// RowCount returns the number of rendered data rows
	RowCount(ctx context.Context) (int, error)

	// ReadCell returns the text of a 1-based row for a column
	ReadCell(ctx context.Context, row int, column string) (string, error)

	// ReadToggle interprets the toggle widget of a 1-based row
	ReadToggle(ctx context.Context, row int, column string) (bool, error)

	// FlipToggle moves a row's toggle to target. Returns false without acting when
	// the toggle already matches.
	FlipToggle(ctx context.Context, action models.ToggleAction) (bool, error)

	// ReadNotification returns the outcome message shown after a performed mutation
	ReadNotification(ctx context.Context) (string, error)

	// Snapshot reads every row's value for a column in one pass
	Snapshot(ctx context.Context, column string) (models.GridSnapshot, error)
}
