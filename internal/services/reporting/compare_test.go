package reporting

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/gridcheck/internal/models"
)

func runWith(id string, quickEditPassed bool) *models.RunSummary {
	summary := &models.RunSummary{ID: id, TestID: "taxes", StartedAt: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)}
	summary.Add(models.ScenarioResult{
		ScenarioID: "filterId",
		Passed:     true,
		Steps: []models.StepResult{
			{ID: "filterId", Passed: true},
			{ID: "filterIdReset", Passed: true},
		},
	})
	summary.Add(models.ScenarioResult{
		ScenarioID: "filterForQuickEdit",
		Passed:     quickEditPassed,
		Steps: []models.StepResult{
			{ID: "filterForQuickEdit", Passed: true},
			{ID: "disableTax", Passed: quickEditPassed},
		},
	})
	return summary
}

func TestCompareRuns_Unchanged(t *testing.T) {
	diff, err := CompareRuns(runWith("run_a", true), runWith("run_b", true))
	require.NoError(t, err)
	assert.Empty(t, diff)
}

func TestCompareRuns_Regression(t *testing.T) {
	diff, err := CompareRuns(runWith("run_a", true), runWith("run_b", false))
	require.NoError(t, err)

	assert.Contains(t, diff, "--- run_a")
	assert.Contains(t, diff, "+++ run_b")
	assert.Contains(t, diff, "-filterForQuickEdit: pass")
	assert.Contains(t, diff, "+filterForQuickEdit: FAIL")
	assert.Contains(t, diff, "+  disableTax: FAIL")
	assert.NotContains(t, diff, "filterId: pass")
}

func TestCompareRuns_AbortedRun(t *testing.T) {
	aborted := &models.RunSummary{ID: "run_b", Error: "browser session unavailable"}
	diff, err := CompareRuns(runWith("run_a", true), aborted)
	require.NoError(t, err)
	assert.Contains(t, diff, "+run: aborted")
	assert.Contains(t, diff, "-filterId: pass")
}

func TestService_WriteComparison(t *testing.T) {
	s := newService(t, false)
	runDir, err := s.StartRun(time.Now())
	require.NoError(t, err)

	require.NoError(t, s.WriteComparison(runWith("run_a", true), runWith("run_b", true)))
	assert.NoFileExists(t, filepath.Join(runDir, "changes.diff"))

	require.NoError(t, s.WriteComparison(runWith("run_a", true), runWith("run_b", false)))
	data, err := os.ReadFile(filepath.Join(runDir, "changes.diff"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "+filterForQuickEdit: FAIL")
}

func TestCompareRuns_SkippedSteps(t *testing.T) {
	current := runWith("run_b", false)
	current.Results[1].Steps = append(current.Results[1].Steps, models.StepResult{ID: "enableTax", Skipped: true})

	diff, err := CompareRuns(runWith("run_a", false), current)
	require.NoError(t, err)
	assert.Contains(t, diff, "+  enableTax: skipped")
}
