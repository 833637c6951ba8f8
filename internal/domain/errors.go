package domain

import "errors"

// Sentinel errors for the core state machine. Callers must be able to tell
// "the entry does not exist" apart from "the entry is in the wrong state",
// since they map to different HTTP statuses and different remediation.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrInvalidInput = errors.New("invalid input")
)
