package interfaces

import (
	"context"

	"github.com/ternarybob/gridcheck/internal/models"
)

// Reporter is the observational sink for suite runs. It never affects control flow.
type Reporter interface {
	// RecordContext marks the start of a reported step for traceability
	RecordContext(testID, scenarioID string)

	// RecordResult is called once per finished scenario
	RecordResult(ctx context.Context, result *models.ScenarioResult)

	// Finish writes the aggregate summary of a run
	Finish(ctx context.Context, summary *models.RunSummary) error
}
