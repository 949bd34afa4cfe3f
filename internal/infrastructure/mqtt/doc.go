// Package mqtt wraps paho.mqtt.golang with connection lifecycle management
// for the Hearth backend.
//
// The wrapper owns a single broker connection and layers on:
//
//   - An explicit connection state machine (disconnected, connecting,
//     connected, reconnecting) queryable via State and Status.
//   - A bounded reconnect loop with doubling backoff: paho's auto-reconnect
//     is disabled so retry policy is local. When the attempt budget is
//     spent the client parks in the disconnected state until an operator
//     calls Restart.
//   - Subscription tracking, with automatic re-subscription after reconnect.
//   - Asynchronous handler dispatch with panic recovery, so one bad message
//     handler cannot stall the read loop or take the connection down.
//   - Last Will and Testament plus retained online/offline status messages,
//     so consumers can tell a crash from a clean shutdown.
//
// Topic construction for the Hearth namespace lives in the Topics type.
package mqtt
