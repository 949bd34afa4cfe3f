package automation

import "errors"

// Sentinel errors for automation operations.
// Callers should use errors.Is() to check error types.
var (
	// ErrNotFound indicates the requested rule does not exist.
	ErrNotFound = errors.New("automation rule not found")

	// ErrInvalidRule indicates the rule failed validation.
	ErrInvalidRule = errors.New("invalid automation rule")

	// ErrAlreadyRunning indicates the engine's scheduler was started twice.
	ErrAlreadyRunning = errors.New("automation engine already running")
)
