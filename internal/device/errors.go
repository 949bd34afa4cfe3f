package device

import "errors"

// Sentinel errors for device operations.
// Callers should use errors.Is() to check error types.
var (
	// ErrNotFound indicates the requested device does not exist.
	ErrNotFound = errors.New("device not found")

	// ErrDuplicateHardwareID indicates a device with the same hardware ID
	// is already registered.
	ErrDuplicateHardwareID = errors.New("duplicate hardware id")

	// ErrInvalidDevice indicates the device failed validation.
	ErrInvalidDevice = errors.New("invalid device")

	// ErrNotActuator indicates a command was sent to a sensor-class device.
	ErrNotActuator = errors.New("device does not accept commands")
)
