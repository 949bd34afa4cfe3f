// Package alert turns sensor readings into alert events.
//
// Thresholds are fixed: flame detection and critical gas levels raise
// high-severity alerts, excess temperature raises medium, low soil
// moisture raises low. Check is the pure threshold function; Evaluator
// wraps it with per-device, per-type cooldown suppression so a sensor
// hovering over a threshold does not flood the alert log.
//
// Raised events are persisted append-only and published to the bus by the
// gateway; resolution is a separate explicit operation.
package alert
