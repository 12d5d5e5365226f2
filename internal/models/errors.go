package models

import (
	"errors"
	"fmt"
)

var (
	// ErrElementNotFound indicates a grid control is absent (schema drift)
	ErrElementNotFound = errors.New("element not found")

	// ErrRowOutOfRange indicates a row index beyond the current row count
	ErrRowOutOfRange = errors.New("row out of range")

	// ErrInvariantViolation indicates a count or state check failed
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrNotificationMismatch indicates the success message did not match after a mutation
	ErrNotificationMismatch = errors.New("notification mismatch")

	// ErrSettleTimeout indicates the grid did not finish reloading within its bound
	ErrSettleTimeout = errors.New("grid did not settle")

	// ErrSessionUnavailable indicates the browser session could not be acquired or was released
	ErrSessionUnavailable = errors.New("browser session unavailable")
)

// ErrorKind classifies a scenario failure for reporting
type ErrorKind string

const (
	ErrorKindNone                 ErrorKind = ""
	ErrorKindElementNotFound      ErrorKind = "ElementNotFound"
	ErrorKindRowOutOfRange        ErrorKind = "RowOutOfRange"
	ErrorKindInvariantViolation   ErrorKind = "InvariantViolation"
	ErrorKindNotificationMismatch ErrorKind = "NotificationMismatch"
	ErrorKindSettleTimeout        ErrorKind = "SettleTimeout"
	ErrorKindSession              ErrorKind = "SessionUnavailable"
	ErrorKindUnexpected           ErrorKind = "Unexpected"
)

// ClassifyError maps an error onto the failure taxonomy
func ClassifyError(err error) ErrorKind {
	switch {
	case err == nil:
		return ErrorKindNone
	case errors.Is(err, ErrElementNotFound):
		return ErrorKindElementNotFound
	case errors.Is(err, ErrRowOutOfRange):
		return ErrorKindRowOutOfRange
	case errors.Is(err, ErrInvariantViolation):
		return ErrorKindInvariantViolation
	case errors.Is(err, ErrNotificationMismatch):
		return ErrorKindNotificationMismatch
	case errors.Is(err, ErrSettleTimeout):
		return ErrorKindSettleTimeout
	case errors.Is(err, ErrSessionUnavailable):
		return ErrorKindSession
	default:
		return ErrorKindUnexpected
	}
}

// NewInvariantViolation wraps ErrInvariantViolation with a description
func NewInvariantViolation(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvariantViolation, fmt.Sprintf(format, args...))
}

// NewElementNotFound wraps ErrElementNotFound with the missing selector
func NewElementNotFound(what, selector string) error {
	return fmt.Errorf("%w: %s (selector: %s)", ErrElementNotFound, what, selector)
}

// NewRowOutOfRange wraps ErrRowOutOfRange with the requested row and available count
func NewRowOutOfRange(row, count int) error {
	return fmt.Errorf("%w: row %d requested, grid has %d rows", ErrRowOutOfRange, row, count)
}

// NewNotificationMismatch wraps ErrNotificationMismatch with the expected and actual text
func NewNotificationMismatch(expected, actual string) error {
	return fmt.Errorf("%w: expected %q in %q", ErrNotificationMismatch, expected, actual)
}
