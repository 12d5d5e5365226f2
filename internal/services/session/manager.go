// -----------------------------------------------------------------------
// Last Modified: Monday, 19th October 2026 11:05:00 am
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/gridcheck/internal/common"
	"github.com/ternarybob/gridcheck/internal/interfaces"
	"github.com/ternarybob/gridcheck/internal/models"
)

// releaseTimeout bounds browser teardown so a hung Chrome cannot block the run
const releaseTimeout = 30 * time.Second

// Manager opens isolated chromedp browsing contexts and guarantees their teardown
type Manager struct {
	config   common.BrowserConfig
	logger   arbor.ILogger
	mu       sync.Mutex
	sessions map[string]*browserSession
}

// Compile-time assertion
var _ interfaces.SessionManager = (*Manager)(nil)

type browserSession struct {
	id              string
	ctx             context.Context
	browserCancel   context.CancelFunc
	allocatorCancel context.CancelFunc
	startedAt       time.Time
	releaseOnce     sync.Once
}

func (s *browserSession) ID() string { return s.id }
func (s *browserSession) Context() context.Context { return s.ctx }

// NewManager creates a session manager for the browser configuration
func NewManager(config common.BrowserConfig, logger arbor.ILogger) *Manager {
	return &Manager{
		config:   config,
		logger:   logger,
		sessions: make(map[string]*browserSession),
	}
}

// allocatorOptions builds the exec allocator flags
func (m *Manager) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", m.config.Headless),
		chromedp.Flag("disable-gpu", m.config.DisableGPU),
		chromedp.Flag("no-sandbox", m.config.NoSandbox),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(m.config.WindowWidth, m.config.WindowHeight),
	)
	if m.config.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(m.config.UserAgent))
	}
	return opts
}

// Acquire opens a browsing context and a page within it. No retries: a failure is fatal to the run.
func (m *Manager) Acquire(ctx context.Context) (interfaces.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrSessionUnavailable, err)
	}

	startTime := time.Now()
	sessionID := common.NewSessionID()

	var allocatorCtx context.Context
	var allocatorCancel context.CancelFunc
	if m.config.RemoteURL != "" {
		allocatorCtx, allocatorCancel = chromedp.NewRemoteAllocator(context.Background(), m.config.RemoteURL)
	} else {
		allocatorCtx, allocatorCancel = chromedp.NewExecAllocator(context.Background(), m.allocatorOptions()...)
	}

	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)

	s := &browserSession{
		id:              sessionID,
		ctx:             browserCtx,
		browserCancel:   browserCancel,
		allocatorCancel: allocatorCancel,
		startedAt:       startTime,
	}

	m.listenPageEvents(s)

	// The first Run allocates the browser; it must run on browserCtx itself so the
	// browser lives until Release, not until a derived timeout fires.
	stopStart := context.AfterFunc(ctx, browserCancel)
	err := chromedp.Run(browserCtx)
	stopStart()
	if err != nil {
		browserCancel()
		allocatorCancel()
		return nil, fmt.Errorf("%w: failed to start browser: %v", models.ErrSessionUnavailable, err)
	}

	// Startup test: the page must answer within the startup bound
	testCtx, testCancel := context.WithTimeout(browserCtx, m.config.StartupTimeoutDuration())
	defer testCancel()
	stop := context.AfterFunc(ctx, testCancel)
	defer stop()

	var title string
	if err := chromedp.Run(testCtx,
		chromedp.EmulateViewport(int64(m.config.WindowWidth), int64(m.config.WindowHeight)),
		chromedp.Navigate("about:blank"),
		chromedp.Title(&title),
	); err != nil {
		browserCancel()
		allocatorCancel()
		return nil, fmt.Errorf("%w: browser failed startup test: %v", models.ErrSessionUnavailable, err)
	}

	m.mu.Lock()
	m.sessions[sessionID] = s
	m.mu.Unlock()

	m.logger.Info().
		Str("session_id", sessionID).
		Bool("headless", m.config.Headless).
		Bool("remote", m.config.RemoteURL != "").
		Dur("startup_time", time.Since(startTime)).
		Msg("Browser session acquired")

	return s, nil
}

// listenPageEvents accepts JavaScript dialogs (quick-edit confirmations) and forwards
// page errors to the log
func (m *Manager) listenPageEvents(s *browserSession) {
	chromedp.ListenTarget(s.ctx, func(ev interface{}) {
		switch e := ev.(type) {
		case *page.EventJavascriptDialogOpening:
			m.logger.Debug().
				Str("session_id", s.id).
				Str("dialog_type", string(e.Type)).
				Str("message", e.Message).
				Msg("Accepting JavaScript dialog")
			// Handling must not block the event loop
			common.SafeGo(m.logger, "acceptDialog", func() {
				if err := chromedp.Run(s.ctx, page.HandleJavaScriptDialog(true)); err != nil {
					m.logger.Warn().Err(err).Str("session_id", s.id).Msg("Failed to accept JavaScript dialog")
				}
			})
		case *runtime.EventExceptionThrown:
			if e.ExceptionDetails != nil {
				m.logger.Warn().
					Str("session_id", s.id).
					Str("exception", e.ExceptionDetails.Text).
					Msg("Page raised an uncaught exception")
			}
		case *runtime.EventConsoleAPICalled:
			if e.Type == runtime.APITypeError {
				m.logger.Debug().
					Str("session_id", s.id).
					Int("args", len(e.Args)).
					Msg("Page logged a console error")
			}
		}
	})
}

// Release tears down the page and its browsing context unconditionally. Safe to call twice.
func (m *Manager) Release(sess interfaces.Session) error {
	if sess == nil {
		return nil
	}

	m.mu.Lock()
	s, ok := m.sessions[sess.ID()]
	delete(m.sessions, sess.ID())
	m.mu.Unlock()

	if !ok {
		m.logger.Debug().Str("session_id", sess.ID()).Msg("Session already released")
		return nil
	}

	var releaseErr error
	s.releaseOnce.Do(func() {
		releaseErr = m.teardown(s)
	})
	return releaseErr
}

// teardown closes the browser gracefully, falling back to cancelling both contexts
func (m *Manager) teardown(s *browserSession) error {
	done := make(chan error, 1)
	go func() {
		err := chromedp.Cancel(s.ctx)
		s.browserCancel()
		s.allocatorCancel()
		done <- err
	}()

	var err error
	select {
	case err = <-done:
	case <-time.After(releaseTimeout):
		m.logger.Warn().
			Str("session_id", s.id).
			Msg("Browser shutdown timed out, forcing cleanup")
		s.browserCancel()
		s.allocatorCancel()
		err = fmt.Errorf("browser shutdown timed out after %v", releaseTimeout)
	}

	m.logger.Info().
		Str("session_id", s.id).
		Dur("session_time", time.Since(s.startedAt)).
		Msg("Browser session released")

	// A context cancelled error means the browser was already gone
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close releases every outstanding session
func (m *Manager) Close() error {
	m.mu.Lock()
	sessions := make([]*browserSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	var firstErr error
	for _, s := range sessions {
		if err := m.Release(s); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ActiveSessions returns the number of acquired, unreleased sessions
func (m *Manager) ActiveSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// With acquires a session, runs fn, and releases the session on every exit path
func (m *Manager) With(ctx context.Context, fn func(interfaces.Session) error) (err error) {
	sess, err := m.Acquire(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if releaseErr := m.Release(sess); releaseErr != nil {
			m.logger.Warn().Err(releaseErr).Str("session_id", sess.ID()).Msg("Session release reported an error")
		}
	}()
	return fn(sess)
}
