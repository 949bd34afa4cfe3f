package scene

import "errors"

// Sentinel errors for scene operations.
// Callers should use errors.Is() to check error types.
var (
	// ErrNotFound indicates the requested scene does not exist.
	ErrNotFound = errors.New("scene not found")

	// ErrInvalidScene indicates the scene failed validation.
	ErrInvalidScene = errors.New("invalid scene")

	// ErrNoActions indicates the scene has no actions to execute.
	ErrNoActions = errors.New("scene has no actions")
)
