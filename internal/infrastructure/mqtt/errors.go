package mqtt

import (
	"errors"
	"strings"
)

// Sentinel errors for MQTT operations.
// Callers should use errors.Is() to check error types.
var (
	// ErrNotConnected indicates operation attempted without broker connection.
	ErrNotConnected = errors.New("mqtt client not connected")

	// ErrConnectionFailed indicates a connection attempt to the broker failed.
	ErrConnectionFailed = errors.New("mqtt connection failed")

	// ErrPublishFailed indicates a message publish operation failed.
	ErrPublishFailed = errors.New("mqtt publish failed")

	// ErrSubscribeFailed indicates a topic subscription failed.
	ErrSubscribeFailed = errors.New("mqtt subscribe failed")

	// ErrUnsubscribeFailed indicates a topic unsubscription failed.
	ErrUnsubscribeFailed = errors.New("mqtt unsubscribe failed")

	// ErrTimeout indicates an operation exceeded its timeout.
	ErrTimeout = errors.New("mqtt operation timeout")

	// ErrInvalidTopic indicates a malformed topic string.
	ErrInvalidTopic = errors.New("invalid mqtt topic")

	// ErrPayloadTooLarge indicates message payload exceeds size limits.
	ErrPayloadTooLarge = errors.New("mqtt payload too large")
)

// Connect failure classes, for log fields and operator diagnostics.
const (
	FailureCredentials = "bad_credentials"
	FailureProtocol    = "protocol_mismatch"
	FailureUnreachable = "broker_unreachable"
)

// ClassifyConnectError maps a connection error to a coarse failure class.
// Paho surfaces CONNACK refusals as plain error strings, so classification
// is by substring rather than sentinel.
func ClassifyConnectError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "bad user name or password"),
		strings.Contains(msg, "not authorized"),
		strings.Contains(msg, "not authorised"):
		return FailureCredentials
	case strings.Contains(msg, "protocol version"),
		strings.Contains(msg, "unsupported protocol"):
		return FailureProtocol
	default:
		return FailureUnreachable
	}
}
