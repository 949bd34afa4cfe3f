package scene

import (
	"context"
	"time"

	"github.com/hearthwise/hearth-core/internal/device"
)

// DeviceStore is the device surface the executor needs.
// Satisfied by *device.Store; narrowed for testing.
type DeviceStore interface {
	Get(id string) (*device.Device, error)
	ApplyOptimistic(ctx context.Context, id string, patch device.Status) (*device.Device, error)
}

// Bus is the publish surface the executor needs.
// Satisfied by *gateway.Gateway; narrowed for testing.
type Bus interface {
	PublishControl(deviceID, action string, parameters map[string]any) bool
	PublishSceneBroadcast(sceneName string, actions []Action) bool
}

// LogWriter persists execution audit records.
// Satisfied by *Repository; narrowed for testing.
type LogWriter interface {
	InsertLog(ctx context.Context, log *ExecutionLog) error
}

// Logger is the minimal logging surface the executor needs.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}

// Executor runs scenes against devices with partial-failure semantics.
//
// A scene never aborts early: every action is attempted in order, and each
// lands in exactly one of the executed or failed buckets. Only a failed
// device lookup fails an action; a publish failure is recorded as a flag on
// the executed action (the optimistic state write is not rolled back, and
// the device simply never receives the command until it reconnects and
// reports real state).
//
// A fixed pacing delay separates consecutive publishes so a large scene
// does not burst-flood the bus.
type Executor struct {
	devices DeviceStore
	bus     Bus
	logs    LogWriter
	logger  Logger

	houseID     string
	actionDelay time.Duration
}

// NewExecutor creates a scene executor.
//
// logs and logger may be nil; execution then runs without an audit trail
// or logging.
func NewExecutor(devices DeviceStore, bus Bus, logs LogWriter, logger Logger, houseID string, actionDelay time.Duration) *Executor {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Executor{
		devices:     devices,
		bus:         bus,
		logs:        logs,
		logger:      logger,
		houseID:     houseID,
		actionDelay: actionDelay,
	}
}

// Execute runs a scene on behalf of the given actor.
//
// The scene definition is not mutated. The returned result always satisfies
// len(Executed)+len(Failed) == len(s.Actions); Success is true only when
// every device lookup succeeded.
func (e *Executor) Execute(ctx context.Context, s *Scene, actorID string) (*ExecutionResult, error) {
	if len(s.Actions) == 0 {
		return nil, ErrNoActions
	}

	start := time.Now()
	result := &ExecutionResult{
		SceneID:    s.ID,
		SceneName:  s.Name,
		ExecutedBy: actorID,
		ExecutedAt: start.UTC(),
		Executed:   make([]ActionResult, 0, len(s.Actions)),
		Failed:     make([]ActionFailure, 0),
	}

	for i, action := range s.Actions {
		if i > 0 && e.actionDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(e.actionDelay):
			}
		}

		e.runAction(ctx, action, result)
	}

	result.SuccessCount = len(result.Executed)
	result.FailedCount = len(result.Failed)
	result.Success = len(result.Failed) == 0
	result.DurationSeconds = time.Since(start).Seconds()

	if !e.bus.PublishSceneBroadcast(s.Name, s.Actions) {
		e.logger.Warn("scene broadcast publish failed", "scene", s.Name)
	}

	e.persistLog(ctx, s, result)

	e.logger.Info("scene executed",
		"scene", s.Name,
		"actor", actorID,
		"executed", result.SuccessCount,
		"failed", result.FailedCount,
		"duration_s", result.DurationSeconds,
	)

	return result, nil
}

// ExecuteActions runs a bare action list with no scene definition, for
// automation rules whose actions are inlined rather than referencing a
// saved scene.
func (e *Executor) ExecuteActions(ctx context.Context, name string, actions []Action, actorID string) (*ExecutionResult, error) {
	s := &Scene{
		ID:      "",
		Name:    name,
		HouseID: e.houseID,
		Actions: actions,
	}
	return e.Execute(ctx, s, actorID)
}

func (e *Executor) runAction(ctx context.Context, action Action, result *ExecutionResult) {
	d, err := e.devices.Get(action.DeviceID)
	if err != nil {
		result.Failed = append(result.Failed, ActionFailure{
			DeviceID: action.DeviceID,
			Action:   action.Action,
			Error:    "device not found",
		})
		e.logger.Warn("scene action skipped", "device", action.DeviceID, "action", action.Action, "error", err)
		return
	}

	oldStatus := d.Status.DeepCopy()

	patch := optimisticPatch(action)
	updated, err := e.devices.ApplyOptimistic(ctx, action.DeviceID, patch)
	if err != nil {
		result.Failed = append(result.Failed, ActionFailure{
			DeviceID: action.DeviceID,
			Action:   action.Action,
			Error:    err.Error(),
		})
		return
	}

	published := e.bus.PublishControl(action.DeviceID, action.Action, action.Parameters)
	if !published {
		e.logger.Warn("scene action publish failed", "device", action.DeviceID, "action", action.Action)
	}

	result.Executed = append(result.Executed, ActionResult{
		DeviceID:   d.ID,
		DeviceName: d.Name,
		DeviceType: d.Type,
		Action:     action.Action,
		OldStatus:  oldStatus,
		NewStatus:  updated.Status,
		Published:  published,
		Parameters: action.Parameters,
		ExecutedAt: time.Now().UTC(),
	})
}

// persistLog writes the audit record. Inline action batches are logged
// too; they carry an empty scene ID.
func (e *Executor) persistLog(ctx context.Context, s *Scene, result *ExecutionResult) {
	if e.logs == nil {
		return
	}

	log := &ExecutionLog{
		ID:              GenerateID(),
		SceneID:         s.ID,
		ExecutedBy:      result.ExecutedBy,
		HouseID:         e.houseID,
		Success:         result.Success,
		ExecutedActions: result.SuccessCount,
		FailedActions:   result.FailedCount,
		Executed:        result.Executed,
		Failed:          result.Failed,
		DurationSeconds: result.DurationSeconds,
		ExecutedAt:      result.ExecutedAt,
	}
	if err := e.logs.InsertLog(ctx, log); err != nil {
		e.logger.Warn("scene execution log not persisted", "scene", s.Name, "error", err)
	}
}

// optimisticPatch derives the status patch implied by an action.
//
// Parameters map directly onto status keys. Bare power actions with no
// parameters still imply a power state change.
func optimisticPatch(action Action) device.Status {
	patch := make(device.Status, len(action.Parameters)+1)

	switch action.Action {
	case "turn_on":
		patch["power"] = "on"
	case "turn_off":
		patch["power"] = "off"
	}

	for k, v := range action.Parameters {
		patch[k] = v
	}

	return patch
}
