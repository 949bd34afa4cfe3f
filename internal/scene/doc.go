// Package scene defines scenes (named, ordered batches of device actions)
// and their execution.
//
// The Executor applies a scene's actions in order with partial-failure
// semantics: a missing device fails that action and execution continues;
// nothing aborts or rolls back. Each action writes an optimistic status
// patch to the device store before the control command is published, so
// UIs reflect intent immediately and reconcile when the device confirms.
// Every run is appended to the execution log.
package scene
