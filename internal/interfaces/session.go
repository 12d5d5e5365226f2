package interfaces

import "context"

// Session is an isolated browsing context with one page opened inside it
type Session interface {
	// ID identifies the session in logs and reports
	ID() string

	// Context returns the page context; browser actions run against it
	Context() context.Context
}

// SessionManager owns browser lifecycle. Every successful Acquire must be paired with
// Release on every exit path.
type SessionManager interface {
	// Acquire opens a browsing context and a page within it. A failure is fatal to the run.
	Acquire(ctx context.Context) (Session, error)

	// Release tears down the page and its browsing context unconditionally
	Release(session Session) error
}
