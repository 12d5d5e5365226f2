package reporting

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/gridcheck/internal/common"
	"github.com/ternarybob/gridcheck/internal/models"
)

func newService(t *testing.T, screenshots bool) *Service {
	t.Helper()
	config := common.NewDefaultConfig().Reporting
	config.ResultsDir = t.TempDir()
	config.Screenshots = screenshots
	return NewService(config, arbor.NewLogger())
}

func fakeScreenshot(ctx context.Context) ([]byte, error) {
	return []byte("\x89PNG fake"), nil
}

func TestService_RecordContext(t *testing.T) {
	s := newService(t, false)
	s.RecordContext("taxes", "filterId")
	s.RecordContext("taxes", "filterIdReset")

	contexts := s.Contexts()
	require.Len(t, contexts, 2)
	assert.Equal(t, "filterId", contexts[0].ScenarioID)
	assert.Equal(t, "taxes", contexts[1].TestID)
}

func TestService_FailureScreenshot(t *testing.T) {
	s := newService(t, true)
	runDir, err := s.StartRun(time.Now())
	require.NoError(t, err)
	s.SetScreenshotter(fakeScreenshot)

	passed := &models.ScenarioResult{ScenarioID: "filterId", Passed: true}
	s.RecordResult(context.Background(), passed)
	assert.Empty(t, passed.Screenshot)

	failed := &models.ScenarioResult{ScenarioID: "filter/Name", ErrorKind: models.ErrorKindInvariantViolation, Error: "boom"}
	s.RecordResult(context.Background(), failed)
	require.NotEmpty(t, failed.Screenshot)
	assert.Equal(t, filepath.Join(runDir, "screenshots"), filepath.Dir(failed.Screenshot))
	assert.Contains(t, filepath.Base(failed.Screenshot), "filter_Name-")
	assert.FileExists(t, failed.Screenshot)
}

func TestService_ScreenshotsDisabledOrFailing(t *testing.T) {
	s := newService(t, false)
	_, err := s.StartRun(time.Now())
	require.NoError(t, err)
	s.SetScreenshotter(fakeScreenshot)

	failed := &models.ScenarioResult{ScenarioID: "filterId"}
	s.RecordResult(context.Background(), failed)
	assert.Empty(t, failed.Screenshot)

	s = newService(t, true)
	_, err = s.StartRun(time.Now())
	require.NoError(t, err)
	s.SetScreenshotter(func(ctx context.Context) ([]byte, error) {
		return nil, errors.New("page gone")
	})
	s.RecordResult(context.Background(), failed)
	assert.Empty(t, failed.Screenshot)
}

func TestService_Finish(t *testing.T) {
	s := newService(t, false)
	started := time.Date(2026, 10, 20, 9, 0, 0, 0, time.UTC)
	runDir, err := s.StartRun(started)
	require.NoError(t, err)
	assert.Equal(t, "run-2026-10-20-09-00-00", filepath.Base(runDir))

	s.RecordContext("taxes", "filterId")

	summary := &models.RunSummary{ID: "run_1", TestID: "taxes", BaseURL: "http://shop.local", Baseline: 12, StartedAt: started, FinishedAt: started.Add(3 * time.Second)}
	summary.Add(models.ScenarioResult{ScenarioID: "filterId", Passed: true})
	summary.Add(models.ScenarioResult{
		ScenarioID: "filterName",
		ErrorKind:  models.ErrorKindInvariantViolation,
		Error:      "reset restored 11 rows | baseline is 12",
		Steps: []models.StepResult{
			{ID: "filterName", Passed: true, Detail: "1 of 12 rows"},
			{ID: "filterNameReset", Detail: "reset restored 11 rows"},
		},
	})

	require.NoError(t, s.Finish(context.Background(), summary))

	data, err := os.ReadFile(filepath.Join(runDir, "summary.json"))
	require.NoError(t, err)
	var decoded models.RunSummary
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 1, decoded.Failed)
	assert.Len(t, decoded.Results, 2)

	md, err := os.ReadFile(filepath.Join(runDir, "summary.md"))
	require.NoError(t, err)
	assert.Contains(t, string(md), "# taxes: FAILED")
	assert.Contains(t, string(md), `11 rows \| baseline`)
	assert.Contains(t, string(md), "- [ ] filterNameReset")

	page, err := os.ReadFile(filepath.Join(runDir, "summary.html"))
	require.NoError(t, err)
	assert.Contains(t, string(page), "<title>taxes</title>")
	assert.Contains(t, string(page), "<table>")

	assert.FileExists(t, filepath.Join(runDir, "contexts.json"))
}

func TestService_StartRunFailureForgetsPreviousRun(t *testing.T) {
	s := newService(t, false)
	first := time.Date(2026, 10, 20, 9, 0, 0, 0, time.UTC)
	firstDir, err := s.StartRun(first)
	require.NoError(t, err)
	s.RecordContext("taxes", "filterId")
	require.NoError(t, s.Finish(context.Background(), &models.RunSummary{ID: "run_1", TestID: "taxes"}))

	// A file where the next run directory belongs makes MkdirAll fail
	second := first.Add(time.Hour)
	blocker := filepath.Join(filepath.Dir(firstDir), second.Format("run-2006-01-02-15-04-05"))
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	_, err = s.StartRun(second)
	require.Error(t, err)
	assert.Empty(t, s.RunDir())
	assert.Empty(t, s.Contexts())

	require.NoError(t, s.Finish(context.Background(), &models.RunSummary{ID: "run_2", TestID: "taxes"}))

	data, err := os.ReadFile(filepath.Join(firstDir, "summary.json"))
	require.NoError(t, err)
	var decoded models.RunSummary
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "run_1", decoded.ID)
}

func TestRenderMarkdown_SkippedSteps(t *testing.T) {
	summary := &models.RunSummary{TestID: "taxes", Baseline: 12}
	summary.Add(models.ScenarioResult{
		ScenarioID: "filterName",
		ErrorKind:  models.ErrorKindElementNotFound,
		Error:      "filter control missing",
		Steps: []models.StepResult{
			{ID: "filterName", Detail: "filter control missing"},
			{ID: "filterNameReset", Skipped: true, Detail: "not run"},
		},
	})

	md := RenderMarkdown(summary)
	assert.Contains(t, md, "- [ ] filterName: filter control missing")
	assert.Contains(t, md, "- [ ] filterNameReset: skipped")
}

func TestService_FinishWithoutRunDir(t *testing.T) {
	s := newService(t, false)
	assert.NoError(t, s.Finish(context.Background(), &models.RunSummary{ID: "run_1"}))
}

func TestRenderMarkdown_Passed(t *testing.T) {
	summary := &models.RunSummary{TestID: "taxes", Baseline: 12}
	summary.Add(models.ScenarioResult{ScenarioID: "filterId", Passed: true})

	md := RenderMarkdown(summary)
	assert.Contains(t, md, "# taxes: PASSED")
	assert.Contains(t, md, "| filterId | pass |")
	assert.NotContains(t, md, "## filterId")
}

func TestRenderHTML_EscapesTitle(t *testing.T) {
	page, err := RenderHTML("<taxes>", "# Run\n\n| a | b |\n|---|---|\n| 1 | 2 |\n")
	require.NoError(t, err)
	assert.Contains(t, string(page), "<title>&lt;taxes&gt;</title>")
	assert.Contains(t, string(page), "<h1>Run</h1>")
	assert.Contains(t, string(page), "<td>1</td>")
}
