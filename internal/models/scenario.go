package models

import (
	"fmt"
	"time"
)

// ScenarioKind selects which assertion cycle runs a scenario
type ScenarioKind string

const (
	ScenarioKindFilter ScenarioKind = "filter"
	ScenarioKindToggle ScenarioKind = "toggle"
)

// ToggleStep is one reported quick-edit action inside a toggle scenario
type ToggleStep struct {
	ID     string       `toml:"id" yaml:"id" json:"id" validate:"required"`
	Action ToggleAction `toml:"action" yaml:"action" json:"action"`
}

// Scenario is one declarative catalog entry.
// Filter scenarios set Filter and optionally ExpectedToken; toggle scenarios set Toggles
// and optionally Isolate to narrow the grid to an order-stable view first.
type Scenario struct {
	ID            string           `toml:"id" yaml:"id" json:"id" validate:"required"`
	Kind          ScenarioKind     `toml:"kind" yaml:"kind" json:"kind" validate:"required,oneof=filter toggle"`
	Filter        *FilterCriterion `toml:"filter,omitempty" yaml:"filter,omitempty" json:"filter,omitempty"`
	ExpectedToken string           `toml:"expected_token,omitempty" yaml:"expected_token,omitempty" json:"expected_token,omitempty"`
	Isolate       *FilterCriterion `toml:"isolate,omitempty" yaml:"isolate,omitempty" json:"isolate,omitempty"`
	Toggles       []ToggleStep     `toml:"toggles,omitempty" yaml:"toggles,omitempty" json:"toggles,omitempty"`
	ResetID       string           `toml:"reset_id,omitempty" yaml:"reset_id,omitempty" json:"reset_id,omitempty"`
}

// ResetStepID returns the reported id of the scenario's closing reset step
func (s Scenario) ResetStepID() string {
	if s.ResetID != "" {
		return s.ResetID
	}
	return s.ID + "Reset"
}

// StepIDs returns every reported step id of the scenario in execution order
func (s Scenario) StepIDs() []string {
	ids := []string{}
	if s.Kind == ScenarioKindFilter || s.Isolate != nil {
		ids = append(ids, s.ID)
	}
	for _, step := range s.Toggles {
		ids = append(ids, step.ID)
	}
	return append(ids, s.ResetStepID())
}

// ExpectedText returns the substring every filtered cell must contain
func (s Scenario) ExpectedText() string {
	if s.ExpectedToken != "" {
		return s.ExpectedToken
	}
	if s.Filter != nil {
		return s.Filter.Value
	}
	return ""
}

// Validate checks the scenario is runnable by its cycle
func (s Scenario) Validate() error {
	switch s.Kind {
	case ScenarioKindFilter:
		if s.Filter == nil {
			return fmt.Errorf("scenario %s: filter scenario requires a filter", s.ID)
		}
		if err := s.Filter.Validate(); err != nil {
			return fmt.Errorf("scenario %s: %w", s.ID, err)
		}
		if len(s.Toggles) > 0 {
			return fmt.Errorf("scenario %s: filter scenario cannot carry toggles", s.ID)
		}
	case ScenarioKindToggle:
		if len(s.Toggles) == 0 {
			return fmt.Errorf("scenario %s: toggle scenario requires at least one toggle", s.ID)
		}
		if s.Isolate != nil {
			if err := s.Isolate.Validate(); err != nil {
				return fmt.Errorf("scenario %s: isolate: %w", s.ID, err)
			}
		}
		for _, step := range s.Toggles {
			if step.Action.Row < 1 {
				return fmt.Errorf("scenario %s: step %s: row must be >= 1", s.ID, step.ID)
			}
		}
	default:
		return fmt.Errorf("scenario %s: unknown kind %q", s.ID, s.Kind)
	}
	return nil
}

// StepResult records one reported step inside a scenario
type StepResult struct {
	ID       string        `json:"id"`
	Passed   bool          `json:"passed"`
	Skipped  bool          `json:"skipped,omitempty"`
	Detail   string        `json:"detail,omitempty"`
	Duration time.Duration `json:"duration"`
}

// ScenarioResult is the pass/fail outcome of one scenario
type ScenarioResult struct {
	ScenarioID string        `json:"scenario_id"`
	Kind       ScenarioKind  `json:"kind"`
	Passed     bool          `json:"passed"`
	ErrorKind  ErrorKind     `json:"error_kind,omitempty"`
	Error      string        `json:"error,omitempty"`
	Steps      []StepResult  `json:"steps"`
	Screenshot string        `json:"screenshot,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
}

// RunSummary aggregates all scenario results of one suite run
type RunSummary struct {
	ID         string           `json:"id"`
	TestID     string           `json:"test_id" badgerhold:"index"`
	BaseURL    string           `json:"base_url"`
	Baseline   int              `json:"baseline"`
	Results    []ScenarioResult `json:"results"`
	Passed     int              `json:"passed"`
	Failed     int              `json:"failed"`
	Error      string           `json:"error,omitempty"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
}

// Add appends a scenario result and updates the counters
func (r *RunSummary) Add(result ScenarioResult) {
	r.Results = append(r.Results, result)
	if result.Passed {
		r.Passed++
	} else {
		r.Failed++
	}
}

// Success reports whether the run started and every scenario passed
func (r *RunSummary) Success() bool {
	return r.Error == "" && r.Failed == 0
}
