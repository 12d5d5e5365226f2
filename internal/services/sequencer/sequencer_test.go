package sequencer

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/gridcheck/internal/models"
)

const successMessage = "The status has been successfully updated."

type fakeRow struct {
	id     string
	name   string
	active bool
}

// fakeGrid is an in-memory taxes grid with switchable faults
type fakeGrid struct {
	rows    []fakeRow
	filters []models.FilterCriterion
	message string

	extraRowsOnFilter int
	resetDelta        int
	brokenToggle      bool
	silentToggle      bool
	wrongMessage      string

	flips         int
	notifications int
	resets        int
}

func newFakeGrid(n int) *fakeGrid {
	g := &fakeGrid{}
	for i := 1; i <= n; i++ {
		g.rows = append(g.rows, fakeRow{
			id:     strconv.Itoa(i),
			name:   "Tax " + strconv.Itoa(i),
			active: i%4 != 0,
		})
	}
	return g
}

func (g *fakeGrid) cell(r fakeRow, column string) (string, bool) {
	switch column {
	case "id_tax":
		return r.id, true
	case "name":
		return r.name, true
	case "active":
		if r.active {
			return "check", true
		}
		return "clear", true
	}
	return "", false
}

func (g *fakeGrid) visible() []int {
	var idx []int
	for i, r := range g.rows {
		match := true
		for _, f := range g.filters {
			if f.Kind == models.FilterKindSelect {
				want, _ := f.BoolValue()
				match = match && r.active == want
				continue
			}
			v, _ := g.cell(r, f.Field)
			if f.Field == "id_tax" {
				match = match && v == f.Value
			} else {
				match = match && strings.Contains(v, f.Value)
			}
		}
		if match {
			idx = append(idx, i)
		}
	}
	return idx
}

func (g *fakeGrid) ApplyFilter(ctx context.Context, criterion models.FilterCriterion) error {
	if _, ok := g.cell(g.rows[0], criterion.Field); !ok {
		return models.NewElementNotFound("filter control", "#tax_"+criterion.Field)
	}
	g.filters = append(g.filters, criterion)
	return nil
}

func (g *fakeGrid) ResetFilters(ctx context.Context) (int, error) {
	g.resets++
	g.filters = nil
	return len(g.rows) + g.resetDelta, nil
}

func (g *fakeGrid) RowCount(ctx context.Context) (int, error) {
	n := len(g.visible())
	if len(g.filters) > 0 {
		n += g.extraRowsOnFilter
	}
	return n, nil
}

func (g *fakeGrid) Snapshot(ctx context.Context, column string) (models.GridSnapshot, error) {
	snapshot := models.GridSnapshot{Column: column}
	for _, i := range g.visible() {
		v, ok := g.cell(g.rows[i], column)
		if !ok {
			return models.GridSnapshot{}, models.NewElementNotFound("cell", "td.column-"+column)
		}
		snapshot.Values = append(snapshot.Values, v)
		snapshot.Toggles = append(snapshot.Toggles, g.rows[i].active)
	}
	if len(g.filters) > 0 {
		for i := 0; i < g.extraRowsOnFilter; i++ {
			snapshot.Values = append(snapshot.Values, g.filters[0].Value)
			snapshot.Toggles = append(snapshot.Toggles, true)
		}
	}
	return snapshot, nil
}

func (g *fakeGrid) rowIndex(row int) (int, error) {
	visible := g.visible()
	if row < 1 || row > len(visible) {
		return 0, models.NewRowOutOfRange(row, len(visible))
	}
	return visible[row-1], nil
}

func (g *fakeGrid) ReadCell(ctx context.Context, row int, column string) (string, error) {
	i, err := g.rowIndex(row)
	if err != nil {
		return "", err
	}
	v, _ := g.cell(g.rows[i], column)
	return v, nil
}

func (g *fakeGrid) ReadToggle(ctx context.Context, row int, column string) (bool, error) {
	i, err := g.rowIndex(row)
	if err != nil {
		return false, err
	}
	return g.rows[i].active, nil
}

func (g *fakeGrid) FlipToggle(ctx context.Context, action models.ToggleAction) (bool, error) {
	i, err := g.rowIndex(action.Row)
	if err != nil {
		return false, err
	}
	if g.rows[i].active == action.Target {
		return false, nil
	}
	g.flips++
	if !g.brokenToggle {
		g.rows[i].active = action.Target
	}
	if !g.silentToggle {
		g.message = successMessage
		if g.wrongMessage != "" {
			g.message = g.wrongMessage
		}
	}
	return true, nil
}

func (g *fakeGrid) ReadNotification(ctx context.Context) (string, error) {
	g.notifications++
	if g.message == "" {
		return "", models.NewElementNotFound("notification", ".alert-success")
	}
	message := g.message
	g.message = ""
	return message, nil
}

type fakeReporter struct {
	mu       sync.Mutex
	contexts []string
	results  []models.ScenarioResult
}

func (r *fakeReporter) RecordContext(testID, scenarioID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contexts = append(r.contexts, scenarioID)
}

func (r *fakeReporter) RecordResult(ctx context.Context, result *models.ScenarioResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, *result)
}

func (r *fakeReporter) Finish(ctx context.Context, summary *models.RunSummary) error {
	return nil
}

func newTestSequencer(t *testing.T, grid *fakeGrid) (*Sequencer, *fakeReporter) {
	t.Helper()
	reporter := &fakeReporter{}
	seq := NewSequencer(grid, reporter, "taxes", successMessage, arbor.NewLogger())
	baseline, err := seq.EstablishBaseline(context.Background())
	require.NoError(t, err)
	require.Equal(t, len(grid.rows), baseline)
	return seq, reporter
}

func filterScenario(id, field string, kind models.FilterKind, value, token string) models.Scenario {
	return models.Scenario{
		ID:            id,
		Kind:          models.ScenarioKindFilter,
		Filter:        &models.FilterCriterion{Field: field, Kind: kind, Value: value},
		ExpectedToken: token,
	}
}

func toggleScenario(steps ...models.ToggleStep) models.Scenario {
	return models.Scenario{
		ID:      "quickEdit",
		Kind:    models.ScenarioKindToggle,
		Isolate: &models.FilterCriterion{Field: "id_tax", Kind: models.FilterKindInput, Value: "1"},
		Toggles: steps,
	}
}

func step(id string, target bool) models.ToggleStep {
	return models.ToggleStep{ID: id, Action: models.ToggleAction{Row: 1, Column: "active", Target: target}}
}

func TestEstablishBaseline_EmptyGrid(t *testing.T) {
	seq := NewSequencer(newFakeGrid(0), &fakeReporter{}, "taxes", successMessage, arbor.NewLogger())

	_, err := seq.EstablishBaseline(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrInvariantViolation))

	_, established := seq.Baseline()
	assert.False(t, established)
}

func TestRunFilterCycle_Identifier(t *testing.T) {
	grid := newFakeGrid(12)
	seq, reporter := newTestSequencer(t, grid)

	steps, err := seq.RunFilterCycle(context.Background(), filterScenario("filterId", "id_tax", models.FilterKindInput, "3", ""))
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, "filterId", steps[0].ID)
	assert.Equal(t, "filterIdReset", steps[1].ID)
	assert.True(t, steps[0].Passed)
	assert.True(t, steps[1].Passed)
	assert.Equal(t, []string{"filterId", "filterIdReset"}, reporter.contexts)
	assert.Empty(t, grid.filters)
}

func TestRunFilterCycle_EnumUsesToken(t *testing.T) {
	grid := newFakeGrid(12)
	seq, _ := newTestSequencer(t, grid)

	_, err := seq.RunFilterCycle(context.Background(), filterScenario("filterActive", "active", models.FilterKindSelect, "true", "check"))
	require.NoError(t, err)

	// The raw enum value never appears in the grid
	_, err = seq.RunFilterCycle(context.Background(), filterScenario("filterActiveRaw", "active", models.FilterKindSelect, "true", ""))
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrInvariantViolation))
}

func TestRunFilterCycle_CountGrew(t *testing.T) {
	grid := newFakeGrid(12)
	seq, _ := newTestSequencer(t, grid)
	grid.extraRowsOnFilter = 12

	steps, err := seq.RunFilterCycle(context.Background(), filterScenario("filterName", "name", models.FilterKindInput, "Tax", ""))
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrInvariantViolation))
	require.Len(t, steps, 2)
	assert.False(t, steps[0].Passed)
	assert.False(t, steps[0].Skipped)
	assert.Equal(t, "filterNameReset", steps[1].ID)
	assert.True(t, steps[1].Skipped)
	assert.False(t, steps[1].Passed)
}

func TestRunFilterCycle_ResetMismatch(t *testing.T) {
	grid := newFakeGrid(12)
	seq, _ := newTestSequencer(t, grid)
	grid.resetDelta = -1

	steps, err := seq.RunFilterCycle(context.Background(), filterScenario("filterName", "name", models.FilterKindInput, "Tax 1", ""))
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrInvariantViolation))
	require.Len(t, steps, 2)
	assert.True(t, steps[0].Passed)
	assert.False(t, steps[1].Passed)
}

func TestRunFilterCycle_MissingControl(t *testing.T) {
	grid := newFakeGrid(12)
	seq, _ := newTestSequencer(t, grid)

	_, err := seq.RunFilterCycle(context.Background(), filterScenario("filterZone", "zone", models.FilterKindInput, "EU", ""))
	assert.True(t, errors.Is(err, models.ErrElementNotFound))
}

func TestRunToggleCycle_FlipAndNoOp(t *testing.T) {
	grid := newFakeGrid(12)
	seq, reporter := newTestSequencer(t, grid)

	steps, err := seq.RunToggleCycle(context.Background(), toggleScenario(
		step("disableTax", false),
		step("disableTaxAgain", false),
		step("enableTax", true),
	))
	require.NoError(t, err)
	require.Len(t, steps, 5)

	assert.Equal(t, []string{"quickEdit", "disableTax", "disableTaxAgain", "enableTax", "quickEditReset"}, reporter.contexts)
	assert.Equal(t, 2, grid.flips)
	// Notifications are read only for performed flips
	assert.Equal(t, 2, grid.notifications)
	assert.Contains(t, steps[2].Detail, "already")
	assert.True(t, grid.rows[0].active)
}

func TestRunToggleCycle_SilentWidget(t *testing.T) {
	grid := newFakeGrid(12)
	seq, _ := newTestSequencer(t, grid)
	grid.brokenToggle = true

	_, err := seq.RunToggleCycle(context.Background(), toggleScenario(step("disableTax", false)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrInvariantViolation))
}

func TestRunToggleCycle_NotificationMismatch(t *testing.T) {
	grid := newFakeGrid(12)
	seq, _ := newTestSequencer(t, grid)
	grid.wrongMessage = "Something went wrong."

	_, err := seq.RunToggleCycle(context.Background(), toggleScenario(step("disableTax", false)))
	assert.True(t, errors.Is(err, models.ErrNotificationMismatch))
}

func TestRunToggleCycle_MissingNotification(t *testing.T) {
	grid := newFakeGrid(12)
	seq, _ := newTestSequencer(t, grid)
	grid.silentToggle = true

	_, err := seq.RunToggleCycle(context.Background(), toggleScenario(step("disableTax", false)))
	assert.True(t, errors.Is(err, models.ErrNotificationMismatch))
}

func TestRunToggleCycle_IsolationMatchesNothing(t *testing.T) {
	grid := newFakeGrid(12)
	seq, _ := newTestSequencer(t, grid)

	scenario := toggleScenario(step("disableTax", false))
	scenario.Isolate.Value = "99"
	_, err := seq.RunToggleCycle(context.Background(), scenario)
	assert.True(t, errors.Is(err, models.ErrInvariantViolation))
	assert.Equal(t, 0, grid.flips)
}

func TestRunToggleCycle_StepsAfterFailureSkipped(t *testing.T) {
	grid := newFakeGrid(12)
	seq, reporter := newTestSequencer(t, grid)
	grid.brokenToggle = true

	steps, err := seq.RunToggleCycle(context.Background(), toggleScenario(
		step("disableTax", false),
		step("enableTax", true),
	))
	require.Error(t, err)
	require.Len(t, steps, 4)

	assert.True(t, steps[0].Passed)
	assert.False(t, steps[1].Passed)
	assert.False(t, steps[1].Skipped)
	for _, skipped := range steps[2:] {
		assert.True(t, skipped.Skipped, skipped.ID)
		assert.False(t, skipped.Passed, skipped.ID)
	}
	assert.Equal(t, "enableTax", steps[2].ID)
	assert.Equal(t, "quickEditReset", steps[3].ID)

	// Skipped steps never start, so no context is recorded for them
	assert.Equal(t, []string{"quickEdit", "disableTax"}, reporter.contexts)
}

func TestRunToggleCycle_RowOutOfRange(t *testing.T) {
	grid := newFakeGrid(12)
	seq, _ := newTestSequencer(t, grid)

	bad := step("disableTax", false)
	bad.Action.Row = 2
	_, err := seq.RunToggleCycle(context.Background(), toggleScenario(bad))
	assert.True(t, errors.Is(err, models.ErrRowOutOfRange))
}

func TestRun_FailureDoesNotStopRun(t *testing.T) {
	grid := newFakeGrid(12)
	seq, reporter := newTestSequencer(t, grid)

	scenarios := []models.Scenario{
		filterScenario("filterZone", "zone", models.FilterKindInput, "EU", ""),
		filterScenario("filterName", "name", models.FilterKindInput, "Tax 1", ""),
	}

	resetsBefore := grid.resets
	results, err := seq.Run(context.Background(), scenarios)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.False(t, results[0].Passed)
	assert.Equal(t, models.ErrorKindElementNotFound, results[0].ErrorKind)
	assert.True(t, results[1].Passed)
	assert.Len(t, reporter.results, 2)

	// One recovery reset after the failure plus the second scenario's own reset
	assert.Equal(t, resetsBefore+2, grid.resets)
}

func TestRun_RequiresBaseline(t *testing.T) {
	grid := newFakeGrid(12)
	reporter := &fakeReporter{}
	seq := NewSequencer(grid, reporter, "taxes", successMessage, arbor.NewLogger())

	results, err := seq.Run(context.Background(), []models.Scenario{
		filterScenario("filterName", "name", models.FilterKindInput, "Tax", ""),
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].Passed)
	assert.Equal(t, models.ErrorKindInvariantViolation, results[0].ErrorKind)
	assert.Equal(t, 0, grid.resets)
}

func TestRun_Cancelled(t *testing.T) {
	grid := newFakeGrid(12)
	seq, _ := newTestSequencer(t, grid)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := seq.Run(ctx, []models.Scenario{
		filterScenario("filterName", "name", models.FilterKindInput, "Tax", ""),
	})
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, results)
}
