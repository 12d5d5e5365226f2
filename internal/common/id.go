package common

import (
	"github.com/google/uuid"
)

// NewRunID generates a unique suite run ID with the "run_" prefix
// Format: run_<uuid>
func NewRunID() string {
	return "run_" + uuid.New().String()
}

// NewSessionID generates a unique browser session ID with the "sess_" prefix
func NewSessionID() string {
	return "sess_" + uuid.New().String()
}
