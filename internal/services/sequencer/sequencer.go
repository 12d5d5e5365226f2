// -----------------------------------------------------------------------
// Last Modified: Monday, 19th October 2026 4:10:00 pm
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package sequencer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/gridcheck/internal/interfaces"
	"github.com/ternarybob/gridcheck/internal/models"
)

// Sequencer runs catalog scenarios strictly in order against one grid and owns
// the baseline row count every scenario must restore.
type Sequencer struct {
	grid           interfaces.GridAccessor
	reporter       interfaces.Reporter
	logger         arbor.ILogger
	testID         string
	successMessage string

	baseline    int
	established bool
}

// NewSequencer creates a sequencer. successMessage is the phrase a real quick edit must surface.
func NewSequencer(grid interfaces.GridAccessor, reporter interfaces.Reporter, testID, successMessage string, logger arbor.ILogger) *Sequencer {
	return &Sequencer{
		grid:           grid,
		reporter:       reporter,
		logger:         logger,
		testID:         testID,
		successMessage: successMessage,
	}
}

// Baseline returns the established baseline and whether it has been established
func (s *Sequencer) Baseline() (int, bool) {
	return s.baseline, s.established
}

// EstablishBaseline clears any filter state and records the unfiltered row count.
// An empty grid cannot prove anything about filtering and is rejected.
func (s *Sequencer) EstablishBaseline(ctx context.Context) (int, error) {
	count, err := s.grid.ResetFilters(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read baseline: %w", err)
	}
	if count <= 0 {
		return 0, models.NewInvariantViolation("baseline row count must be above 0, got %d", count)
	}

	s.baseline = count
	s.established = true

	s.logger.Info().Int("baseline", count).Msg("Baseline established")
	return count, nil
}

// stepRunner records the outcome of each reported step of one scenario
type stepRunner struct {
	s      *Sequencer
	logger arbor.ILogger
	steps  []models.StepResult
}

// run reports the step's context, executes fn and records its result.
// fn returns a short detail describing what happened.
func (r *stepRunner) run(id string, fn func() (string, error)) error {
	r.s.reporter.RecordContext(r.s.testID, id)
	start := time.Now()

	detail, err := fn()

	step := models.StepResult{
		ID:       id,
		Passed:   err == nil,
		Detail:   detail,
		Duration: time.Since(start),
	}
	if err != nil {
		step.Detail = err.Error()
		r.logger.Warn().Str("step", id).Err(err).Msg("Step failed")
	} else {
		r.logger.Debug().Str("step", id).Str("detail", detail).Msg("Step passed")
	}
	r.steps = append(r.steps, step)
	return err
}

// skipRest records every step of scenario that did not get to run after a failure
func (r *stepRunner) skipRest(scenario models.Scenario) []models.StepResult {
	ids := scenario.StepIDs()
	for _, id := range ids[min(len(r.steps), len(ids)):] {
		r.steps = append(r.steps, models.StepResult{ID: id, Skipped: true, Detail: "not run"})
	}
	return r.steps
}

// assertBaseline resets the grid and requires the exact baseline count
func (s *Sequencer) assertBaseline(ctx context.Context) (string, error) {
	count, err := s.grid.ResetFilters(ctx)
	if err != nil {
		return "", err
	}
	if count != s.baseline {
		return "", models.NewInvariantViolation("reset restored %d rows, baseline is %d", count, s.baseline)
	}
	return fmt.Sprintf("reset restored %d rows", count), nil
}

// applyAndVerify applies a filter, checks the count did not grow and that
// every visible cell of the filtered column contains expected
func (s *Sequencer) applyAndVerify(ctx context.Context, criterion models.FilterCriterion, expected string) (int, error) {
	if err := s.grid.ApplyFilter(ctx, criterion); err != nil {
		return 0, err
	}

	snapshot, err := s.grid.Snapshot(ctx, criterion.Field)
	if err != nil {
		return 0, err
	}

	count := snapshot.RowCount()
	if count > s.baseline {
		return count, models.NewInvariantViolation("filter %s grew the grid to %d rows, baseline is %d", criterion.String(), count, s.baseline)
	}

	for i, value := range snapshot.Values {
		if !strings.Contains(value, expected) {
			return count, models.NewInvariantViolation("row %d column %s is %q, expected it to contain %q", i+1, criterion.Field, value, expected)
		}
	}
	return count, nil
}

// RunFilterCycle applies the scenario filter, verifies the filtered view and resets to the baseline
func (s *Sequencer) RunFilterCycle(ctx context.Context, scenario models.Scenario) ([]models.StepResult, error) {
	runner := &stepRunner{s: s, logger: s.logger.WithCorrelationId(scenario.ID)}
	if scenario.Filter == nil {
		return nil, fmt.Errorf("scenario %s has no filter", scenario.ID)
	}
	criterion := *scenario.Filter
	expected := scenario.ExpectedText()

	err := runner.run(scenario.ID, func() (string, error) {
		count, err := s.applyAndVerify(ctx, criterion, expected)
		if err != nil {
			return "", err
		}
		if count == 0 {
			runner.logger.Warn().Str("filter", criterion.String()).Msg("Filter matched no rows")
		}
		return fmt.Sprintf("%d of %d rows contain %q", count, s.baseline, expected), nil
	})
	if err != nil {
		return runner.skipRest(scenario), err
	}

	err = runner.run(scenario.ResetStepID(), func() (string, error) {
		return s.assertBaseline(ctx)
	})
	return runner.steps, err
}

// RunToggleCycle optionally isolates the target rows, then drives every toggle step to its
// target and finally resets to the baseline. Row indexes are only meaningful in an
// order-stable view, which isolation provides.
func (s *Sequencer) RunToggleCycle(ctx context.Context, scenario models.Scenario) ([]models.StepResult, error) {
	runner := &stepRunner{s: s, logger: s.logger.WithCorrelationId(scenario.ID)}

	if scenario.Isolate != nil {
		isolate := *scenario.Isolate
		err := runner.run(scenario.ID, func() (string, error) {
			expected := ""
			if isolate.Kind == models.FilterKindInput {
				expected = isolate.Value
			}
			count, err := s.applyAndVerify(ctx, isolate, expected)
			if err != nil {
				return "", err
			}
			if count == 0 {
				return "", models.NewInvariantViolation("isolation filter %s matched no rows", isolate.String())
			}
			return fmt.Sprintf("isolated %d rows", count), nil
		})
		if err != nil {
			return runner.skipRest(scenario), err
		}
	}

	for _, step := range scenario.Toggles {
		action := step.Action
		err := runner.run(step.ID, func() (string, error) {
			return s.toggle(ctx, action)
		})
		if err != nil {
			return runner.skipRest(scenario), err
		}
	}

	err := runner.run(scenario.ResetStepID(), func() (string, error) {
		return s.assertBaseline(ctx)
	})
	return runner.steps, err
}

// toggle drives one row to its target state. The notification is asserted only when
// a click was performed; the state is always re-read.
func (s *Sequencer) toggle(ctx context.Context, action models.ToggleAction) (string, error) {
	performed, err := s.grid.FlipToggle(ctx, action)
	if err != nil {
		return "", err
	}

	if performed {
		message, err := s.grid.ReadNotification(ctx)
		if err != nil {
			if errors.Is(err, models.ErrElementNotFound) {
				return "", models.NewNotificationMismatch(s.successMessage, "")
			}
			return "", err
		}
		if !strings.Contains(message, s.successMessage) {
			return "", models.NewNotificationMismatch(s.successMessage, message)
		}
	}

	state, err := s.grid.ReadToggle(ctx, action.Row, action.Column)
	if err != nil {
		return "", err
	}
	if state != action.Target {
		return "", models.NewInvariantViolation("row %d column %s is %t after toggle, expected %t", action.Row, action.Column, state, action.Target)
	}

	if performed {
		return fmt.Sprintf("row %d set to %t", action.Row, action.Target), nil
	}
	return fmt.Sprintf("row %d already %t", action.Row, action.Target), nil
}

// RunScenario executes one scenario and reports its result. A failure aborts only this
// scenario; the grid then gets one best-effort reset so the next scenario starts unfiltered.
func (s *Sequencer) RunScenario(ctx context.Context, scenario models.Scenario) models.ScenarioResult {
	logger := s.logger.WithCorrelationId(scenario.ID)
	result := models.ScenarioResult{
		ScenarioID: scenario.ID,
		Kind:       scenario.Kind,
		StartedAt:  time.Now(),
	}

	var err error
	switch {
	case !s.established:
		s.reporter.RecordContext(s.testID, scenario.ID)
		err = models.NewInvariantViolation("baseline not established")
	case scenario.Kind == models.ScenarioKindFilter:
		result.Steps, err = s.RunFilterCycle(ctx, scenario)
	case scenario.Kind == models.ScenarioKindToggle:
		result.Steps, err = s.RunToggleCycle(ctx, scenario)
	default:
		s.reporter.RecordContext(s.testID, scenario.ID)
		err = fmt.Errorf("unknown scenario kind %q", scenario.Kind)
	}

	result.Duration = time.Since(result.StartedAt)
	result.Passed = err == nil
	if err != nil {
		result.ErrorKind = models.ClassifyError(err)
		result.Error = err.Error()
	}

	// Screenshots are taken by the reporter, so it must see the failing view before recovery
	s.reporter.RecordResult(ctx, &result)

	if err != nil {
		logger.Error().
			Str("error_kind", string(result.ErrorKind)).
			Err(err).
			Dur("duration", result.Duration).
			Msg("Scenario failed")
		if s.established && ctx.Err() == nil {
			s.restoreView(ctx, logger)
		}
	} else {
		logger.Info().
			Int("steps", len(result.Steps)).
			Dur("duration", result.Duration).
			Msg("Scenario passed")
	}

	return result
}

func (s *Sequencer) restoreView(ctx context.Context, logger arbor.ILogger) {
	count, err := s.grid.ResetFilters(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("Recovery reset failed")
		return
	}
	if count != s.baseline {
		logger.Warn().Int("count", count).Int("baseline", s.baseline).Msg("Recovery reset did not restore the baseline")
	}
}

// Run executes scenarios in declared order. It stops early only when ctx is cancelled.
func (s *Sequencer) Run(ctx context.Context, scenarios []models.Scenario) ([]models.ScenarioResult, error) {
	results := make([]models.ScenarioResult, 0, len(scenarios))
	for _, scenario := range scenarios {
		if err := ctx.Err(); err != nil {
			s.logger.Warn().Int("completed", len(results)).Int("total", len(scenarios)).Msg("Run cancelled")
			return results, err
		}
		results = append(results, s.RunScenario(ctx, scenario))
	}
	return results, nil
}
