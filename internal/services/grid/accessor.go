// -----------------------------------------------------------------------
// Last Modified: Monday, 19th October 2026 2:40:00 pm
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package grid

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/gridcheck/internal/common"
	"github.com/ternarybob/gridcheck/internal/interfaces"
	"github.com/ternarybob/gridcheck/internal/models"
	"github.com/ternarybob/gridcheck/internal/services/session"
	"golang.org/x/time/rate"
)

// actionTimeout bounds a single browser round trip
const actionTimeout = 10 * time.Second

// probeTimeout bounds one settle probe; a probe issued mid-navigation may hang until the new document exists
const probeTimeout = 2 * time.Second

// Accessor reads and manipulates a server-rendered grid through a browser session.
// Every mutating action waits for the grid to settle before returning.
type Accessor struct {
	session interfaces.Session
	config  common.GridConfig
	settle  common.SettleConfig
	logger  arbor.ILogger
}

// Compile-time assertion
var _ interfaces.GridAccessor = (*Accessor)(nil)

// NewAccessor binds an accessor to a session's page
func NewAccessor(sess interfaces.Session, config common.GridConfig, settle common.SettleConfig, logger arbor.ILogger) *Accessor {
	return &Accessor{
		session: sess,
		config:  config,
		settle:  settle,
		logger:  logger,
	}
}

func (a *Accessor) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	return session.Run(ctx, a.session, timeout, actions...)
}

func (a *Accessor) evaluate(ctx context.Context, script string, res interface{}) error {
	return a.run(ctx, actionTimeout, chromedp.Evaluate(script, res))
}

func (a *Accessor) count(ctx context.Context, selector string) (int, error) {
	var n int
	if err := a.evaluate(ctx, countScript(selector), &n); err != nil {
		return 0, fmt.Errorf("failed to query %s: %w", selector, err)
	}
	return n, nil
}

func (a *Accessor) markPending(ctx context.Context) error {
	var ok bool
	return a.evaluate(ctx, markPendingScript(), &ok)
}

// poll calls probe at most once per poll interval until it reports done or
// timeout elapses. The last probe error is returned when the bound is hit.
func (a *Accessor) poll(ctx context.Context, timeout time.Duration, probe func() (bool, error)) (bool, error) {
	limiter := rate.NewLimiter(rate.Every(a.settle.PollIntervalDuration()), 1)
	deadline := time.Now().Add(timeout)

	var lastErr error
	for {
		if err := limiter.Wait(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return false, ctxErr
			}
			// The next slot lies beyond the caller's deadline
			return false, lastErr
		}

		done, err := probe()
		if err == nil && done {
			return true, nil
		}
		if err != nil {
			lastErr = err
		}
		if time.Now().After(deadline) {
			return false, lastErr
		}
	}
}

// waitSettled polls until the grid has finished reloading. Probe errors are
// expected while a navigation swaps documents and are retried.
func (a *Accessor) waitSettled(ctx context.Context) error {
	timeout := a.settle.TimeoutDuration()
	script := settledScript(a.config.Table, a.config.Loading)

	settled, err := a.poll(ctx, timeout, func() (bool, error) {
		var settled bool
		err := a.run(ctx, probeTimeout, chromedp.Evaluate(script, &settled))
		return settled, err
	})
	if settled {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err != nil {
		return fmt.Errorf("%w after %v: %v", models.ErrSettleTimeout, timeout, err)
	}
	return fmt.Errorf("%w after %v", models.ErrSettleTimeout, timeout)
}

// trigger marks the page pending, performs the action and waits for the reload
func (a *Accessor) trigger(ctx context.Context, action chromedp.Action) error {
	if err := a.markPending(ctx); err != nil {
		return fmt.Errorf("failed to mark grid pending: %w", err)
	}
	if err := a.run(ctx, actionTimeout, action); err != nil {
		return err
	}
	return a.waitSettled(ctx)
}

func (a *Accessor) click(ctx context.Context, what, selector string) error {
	n, err := a.count(ctx, selector)
	if err != nil {
		return err
	}
	if n == 0 {
		return models.NewElementNotFound(what, selector)
	}
	return a.trigger(ctx, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible))
}

// ApplyFilter enters the criterion in its column filter and submits the filter form
func (a *Accessor) ApplyFilter(ctx context.Context, criterion models.FilterCriterion) error {
	if err := criterion.Validate(); err != nil {
		return err
	}
	if err := a.waitSettled(ctx); err != nil {
		return err
	}

	selector := FilterSelector(a.config, criterion.Field)
	n, err := a.count(ctx, selector)
	if err != nil {
		return err
	}
	if n == 0 {
		return models.NewElementNotFound(fmt.Sprintf("filter control for %q", criterion.Field), selector)
	}

	switch criterion.Kind {
	case models.FilterKindSelect:
		value, _ := criterion.BoolValue()
		label := a.config.FalseLabel
		if value {
			label = a.config.TrueLabel
		}
		var selected bool
		if err := a.evaluate(ctx, selectOptionScript(selector, label), &selected); err != nil {
			return fmt.Errorf("failed to select %q in %s: %w", label, selector, err)
		}
		if !selected {
			return models.NewElementNotFound(fmt.Sprintf("option %q for %q", label, criterion.Field), selector)
		}
	default:
		var entered bool
		if err := a.evaluate(ctx, setInputScript(selector, criterion.Value), &entered); err != nil {
			return fmt.Errorf("failed to enter filter value in %s: %w", selector, err)
		}
		if !entered {
			return models.NewElementNotFound(fmt.Sprintf("filter control for %q", criterion.Field), selector)
		}
	}

	if err := a.click(ctx, "filter submit", a.config.FilterSubmit); err != nil {
		return err
	}

	a.logger.Debug().
		Str("field", criterion.Field).
		Str("kind", string(criterion.Kind)).
		Str("value", criterion.Value).
		Msg("Filter applied")
	return nil
}

// ResetFilters clears every filter and returns the resulting row count.
// The reset control is only rendered while a filter is active, so its absence is not an error.
func (a *Accessor) ResetFilters(ctx context.Context) (int, error) {
	if err := a.waitSettled(ctx); err != nil {
		return 0, err
	}

	n, err := a.count(ctx, a.config.FilterReset)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		if err := a.click(ctx, "filter reset", a.config.FilterReset); err != nil {
			return 0, err
		}
		a.logger.Debug().Msg("Filters reset")
	} else {
		a.logger.Debug().Str("selector", a.config.FilterReset).Msg("No active filters to reset")
	}

	return a.RowCount(ctx)
}

// Snapshot reads every visible row's value of column
func (a *Accessor) Snapshot(ctx context.Context, column string) (models.GridSnapshot, error) {
	if err := a.waitSettled(ctx); err != nil {
		return models.GridSnapshot{}, err
	}

	var html string
	if err := a.evaluate(ctx, outerHTMLScript(a.config.Table), &html); err != nil {
		return models.GridSnapshot{}, fmt.Errorf("failed to read grid markup: %w", err)
	}
	if html == "" {
		return models.GridSnapshot{}, models.NewElementNotFound("grid", a.config.Table)
	}

	return ParseSnapshot(html, a.config, column)
}

// RowCount returns the number of visible data rows
func (a *Accessor) RowCount(ctx context.Context) (int, error) {
	snapshot, err := a.Snapshot(ctx, "")
	if err != nil {
		return 0, err
	}
	return snapshot.RowCount(), nil
}

func (a *Accessor) rowSnapshot(ctx context.Context, row int, column string) (models.GridSnapshot, error) {
	if row < 1 {
		return models.GridSnapshot{}, models.NewRowOutOfRange(row, 0)
	}
	snapshot, err := a.Snapshot(ctx, column)
	if err != nil {
		return models.GridSnapshot{}, err
	}
	if row > snapshot.RowCount() {
		return models.GridSnapshot{}, models.NewRowOutOfRange(row, snapshot.RowCount())
	}
	return snapshot, nil
}

// ReadCell returns the whitespace-normalized text of a cell; row is 1-based
func (a *Accessor) ReadCell(ctx context.Context, row int, column string) (string, error) {
	snapshot, err := a.rowSnapshot(ctx, row, column)
	if err != nil {
		return "", err
	}
	return snapshot.Values[row-1], nil
}

// ReadToggle returns the on/off state of a boolean cell; row is 1-based
func (a *Accessor) ReadToggle(ctx context.Context, row int, column string) (bool, error) {
	snapshot, err := a.rowSnapshot(ctx, row, column)
	if err != nil {
		return false, err
	}
	return snapshot.Toggles[row-1], nil
}

// FlipToggle clicks a row's toggle only when its state differs from the target.
// It reports whether a click was performed; no click means no notification will follow.
func (a *Accessor) FlipToggle(ctx context.Context, action models.ToggleAction) (bool, error) {
	current, err := a.ReadToggle(ctx, action.Row, action.Column)
	if err != nil {
		return false, err
	}
	if current == action.Target {
		a.logger.Debug().
			Int("row", action.Row).
			Str("column", action.Column).
			Bool("target", action.Target).
			Msg("Toggle already in target state")
		return false, nil
	}

	cell := CellSelector(a.config, action.Column)
	script := clickRowControlScript(a.config.Table, a.config.Rows, cell, a.config.ToggleControl, action.Row)
	if err := a.markPending(ctx); err != nil {
		return false, fmt.Errorf("failed to mark grid pending: %w", err)
	}

	var clicked bool
	if err := a.evaluate(ctx, script, &clicked); err != nil {
		return false, fmt.Errorf("failed to click toggle in row %d: %w", action.Row, err)
	}
	if !clicked {
		return false, models.NewElementNotFound(fmt.Sprintf("toggle control in row %d", action.Row), cell+" "+a.config.ToggleControl)
	}
	if err := a.waitSettled(ctx); err != nil {
		return true, err
	}

	a.logger.Debug().
		Int("row", action.Row).
		Str("column", action.Column).
		Bool("target", action.Target).
		Msg("Toggle flipped")
	return true, nil
}

// ReadNotification waits for the outcome message and returns its text
func (a *Accessor) ReadNotification(ctx context.Context) (string, error) {
	if err := a.waitSettled(ctx); err != nil {
		return "", err
	}

	script := textScript(a.config.Notification)
	var text string
	found, err := a.poll(ctx, a.settle.NotificationTimeoutDuration(), func() (bool, error) {
		var raw string
		if err := a.evaluate(ctx, script, &raw); err != nil {
			return false, err
		}
		text = normalizeText(raw)
		return text != "", nil
	})
	if found {
		return text, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}
	if err != nil {
		return "", fmt.Errorf("failed to read notification: %w", err)
	}
	return "", models.NewElementNotFound("notification", a.config.Notification)
}
