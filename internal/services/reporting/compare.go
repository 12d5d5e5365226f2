package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/ternarybob/gridcheck/internal/models"
)

// outcomeLines flattens a run into one line per scenario and step, in execution order
func outcomeLines(summary *models.RunSummary) []string {
	var lines []string
	if summary.Error != "" {
		lines = append(lines, "run: aborted\n")
	}
	for _, result := range summary.Results {
		lines = append(lines, fmt.Sprintf("%s: %s\n", result.ScenarioID, outcome(result.Passed)))
		for _, step := range result.Steps {
			state := outcome(step.Passed)
			if step.Skipped {
				state = "skipped"
			}
			lines = append(lines, fmt.Sprintf("  %s: %s\n", step.ID, state))
		}
	}
	return lines
}

func outcome(passed bool) string {
	if passed {
		return "pass"
	}
	return "FAIL"
}

// CompareRuns returns a unified diff of scenario and step outcomes between two runs.
// The result is empty when every outcome is unchanged.
func CompareRuns(previous, current *models.RunSummary) (string, error) {
	diff := difflib.UnifiedDiff{
		A:        outcomeLines(previous),
		B:        outcomeLines(current),
		FromFile: previous.ID,
		FromDate: previous.StartedAt.Format("2006-01-02 15:04:05"),
		ToFile:   current.ID,
		ToDate:   current.StartedAt.Format("2006-01-02 15:04:05"),
		Context:  1,
	}
	return difflib.GetUnifiedDiffString(diff)
}

// WriteComparison logs outcome changes since the previous run and writes them to changes.diff
func (s *Service) WriteComparison(previous, current *models.RunSummary) error {
	diff, err := CompareRuns(previous, current)
	if err != nil {
		return fmt.Errorf("failed to compare runs: %w", err)
	}

	if diff == "" {
		s.logger.Info().Str("previous_run", previous.ID).Msg("Outcomes unchanged since previous run")
		return nil
	}

	changed := 0
	for _, line := range strings.Split(diff, "\n") {
		if strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++") {
			changed++
		}
	}
	s.logger.Warn().
		Str("previous_run", previous.ID).
		Int("changed", changed).
		Msg("Outcomes changed since previous run")

	runDir := s.RunDir()
	if runDir == "" {
		return nil
	}
	if err := os.WriteFile(filepath.Join(runDir, "changes.diff"), []byte(diff), 0644); err != nil {
		return fmt.Errorf("failed to write changes.diff: %w", err)
	}
	return nil
}
