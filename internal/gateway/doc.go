// Package gateway is the seam between the message bus and the core.
//
// Inbound, it subscribes to the sensor, status, heartbeat, and
// device-alert topics and routes each message to its sink: readings are
// persisted and evaluated for alerts, status and heartbeats update the
// device store. Malformed payloads are logged and dropped so one
// misbehaving device cannot disturb the rest of the house.
//
// Outbound, it envelopes and publishes control commands, scene
// broadcasts, and alert notifications. Publishes report a success bool:
// in a house, the right response to a publish failure is to note it and
// carry on, not to abort the operation that triggered it.
package gateway
