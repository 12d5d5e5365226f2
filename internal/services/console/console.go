// -----------------------------------------------------------------------
// Last Modified: Monday, 19th October 2026 5:20:00 pm
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

// Package console drives the administrative console chrome around the grid:
// the login form and the two-level side menu.
package console

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
)

const actionTimeout = 10 * time.Second

// menuGrace is how long a menu click may take to start a navigation before it is treated as in-page
const menuGrace = 750 * time.Millisecond

// Console logs in and navigates through a browser session
type Console struct {
	session interfaces.Session
	config  *common.Config
	logger  arbor.ILogger
}

// Compile-time assertions
var (
	_ interfaces.Authenticator = (*Console)(nil)
	_ interfaces.Navigator     = (*Console)(nil)
)

// New binds the console chrome to a session
func New(sess interfaces.Session, config *common.Config, logger arbor.ILogger) *Console {
	return &Console{
		session: sess,
		config:  config,
		logger:  logger,
	}
}

func (c *Console) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	return session.Run(ctx, c.session, timeout, actions...)
}

// Login submits the login form and waits for the logged-in marker
func (c *Console) Login(ctx context.Context) error {
	auth := c.config.Auth
	if auth.Skip {
		c.logger.Debug().Msg("Login skipped by configuration")
		return nil
	}

	loginURL := c.config.AdminURL(auth.LoginPath)
	startTime := time.Now()

	if err := c.run(ctx, actionTimeout,
		chromedp.Navigate(loginURL),
		chromedp.WaitVisible(auth.EmailSelector, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("failed to open login page %s: %w", loginURL, err)
	}

	if err := c.run(ctx, actionTimeout,
		chromedp.SetValue(auth.EmailSelector, auth.Email, chromedp.ByQuery),
		chromedp.SetValue(auth.PasswordSelector, auth.Password, chromedp.ByQuery),
		chromedp.Click(auth.SubmitSelector, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("failed to submit login form: %w", err)
	}

	timeout := c.config.Settle.TimeoutDuration()
	if err := c.run(ctx, timeout, chromedp.WaitVisible(auth.LoggedInSelector, chromedp.ByQuery)); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("login failed: %s not visible after %v: %w", auth.LoggedInSelector, timeout, err)
	}

	c.logger.Info().
		Str("email", auth.Email).
		Dur("duration", time.Since(startTime)).
		Msg("Logged in")
	return nil
}

// GoToGrid opens the parent menu, follows the child entry and returns the page title.
// Without menu selectors the configured grid path is opened directly.
func (c *Console) GoToGrid(ctx context.Context, parentMenu, childMenu string) (string, error) {
	nav := c.config.Navigation

	if parentMenu == "" && childMenu == "" {
		gridURL := c.config.AdminURL(nav.GridPath)
		if err := c.run(ctx, actionTimeout, chromedp.Navigate(gridURL)); err != nil {
			return "", fmt.Errorf("failed to open %s: %w", gridURL, err)
		}
	} else {
		if parentMenu != "" {
			if err := c.clickMenu(ctx, parentMenu, childMenu, false); err != nil {
				return "", err
			}
		}
		if childMenu != "" {
			if err := c.clickMenu(ctx, childMenu, nav.TitleSelector, true); err != nil {
				return "", err
			}
		}
	}

	var location string
	if err := c.run(ctx, actionTimeout, chromedp.Location(&location)); err != nil {
		return "", fmt.Errorf("failed to read page location: %w", err)
	}
	if !common.SameOrigin(location, c.config.Target.BaseURL) {
		return "", fmt.Errorf("navigation left the console: landed on %s", location)
	}

	title, err := c.title(ctx, nav.TitleSelector)
	if err != nil {
		return "", err
	}

	c.logger.Info().
		Str("parent", parentMenu).
		Str("child", childMenu).
		Str("url", location).
		Str("title", title).
		Msg("Reached grid page")
	return title, nil
}

// clickMenu clicks a menu entry and waits until next is present. A click that
// leaves the page is followed to the new document; when mustNavigate is false a click
// that stays on the page (an expanding submenu) is accepted after a grace period.
func (c *Console) clickMenu(ctx context.Context, selector, next string, mustNavigate bool) error {
	var prepared bool
	if err := c.run(ctx, actionTimeout, chromedp.Evaluate(prepareClickScript(selector), &prepared)); err != nil {
		return fmt.Errorf("failed to prepare menu click on %s: %w", selector, err)
	}
	if !prepared {
		return models.NewElementNotFound("menu entry", selector)
	}

	timeout := c.config.Settle.TimeoutDuration()
	interval := c.config.Settle.PollIntervalDuration()
	start := time.Now()
	deadline := start.Add(timeout)

	for {
		var state string
		// Probe errors are expected while documents swap
		err := c.run(ctx, interval+time.Second, chromedp.Evaluate(navigationStateScript(next), &state))
		if err == nil {
			switch state {
			case stateArrived:
				return nil
			case stateStayed:
				if !mustNavigate && time.Since(start) > menuGrace {
					return nil
				}
			}
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if time.Now().After(deadline) {
			if state == stateMissing {
				return models.NewElementNotFound("menu target after clicking "+selector, next)
			}
			return fmt.Errorf("%w: navigation from %s did not finish within %v", models.ErrSettleTimeout, selector, timeout)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

func (c *Console) title(ctx context.Context, selector string) (string, error) {
	var title string
	if err := c.run(ctx, actionTimeout, chromedp.Evaluate(titleScript(selector), &title)); err != nil {
		return "", fmt.Errorf("failed to read page title: %w", err)
	}
	return title, nil
}
