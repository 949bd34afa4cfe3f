package scene

import (
	"time"

	"github.com/google/uuid"

	"github.com/hearthwise/hearth-core/internal/device"
)

// Action is one step in a scene: a named command for a device.
type Action struct {
	DeviceID   string         `json:"device_id"`
	Action     string         `json:"action"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// Scene is a named, ordered batch of device actions.
// The definition is immutable during execution.
type Scene struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	HouseID     string    `json:"house_id"`
	Actions     []Action  `json:"actions"`
	Icon        string    `json:"icon,omitempty"`
	Colour      string    `json:"colour,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ActionResult records the outcome of one executed action.
type ActionResult struct {
	DeviceID   string         `json:"device_id"`
	DeviceName string         `json:"device_name"`
	DeviceType string         `json:"device_type"`
	Action     string         `json:"action"`
	OldStatus  device.Status  `json:"old_status"`
	NewStatus  device.Status  `json:"new_status"`
	Published  bool           `json:"published"`
	Parameters map[string]any `json:"parameters,omitempty"`
	ExecutedAt time.Time      `json:"executed_at"`
}

// ActionFailure records an action that could not be executed.
type ActionFailure struct {
	DeviceID string `json:"device_id"`
	Action   string `json:"action"`
	Error    string `json:"error"`
}

// ExecutionResult is the aggregate outcome of a scene run.
//
// Every action lands in exactly one of Executed or Failed, so
// len(Executed)+len(Failed) equals the scene's action count.
type ExecutionResult struct {
	SceneID         string          `json:"scene_id"`
	SceneName       string          `json:"scene_name"`
	Success         bool            `json:"success"`
	Executed        []ActionResult  `json:"executed_actions"`
	Failed          []ActionFailure `json:"failed_actions"`
	SuccessCount    int             `json:"success_count"`
	FailedCount     int             `json:"failed_count"`
	DurationSeconds float64         `json:"duration_seconds"`
	ExecutedBy      string          `json:"executed_by"`
	ExecutedAt      time.Time       `json:"executed_at"`
}

// ExecutionLog is the persisted audit record of one scene run.
// SceneID is empty for inline action batches run by automations.
type ExecutionLog struct {
	ID              string          `json:"id"`
	SceneID         string          `json:"scene_id,omitempty"`
	ExecutedBy      string          `json:"executed_by"`
	HouseID         string          `json:"house_id"`
	Success         bool            `json:"success"`
	ExecutedActions int             `json:"executed_actions"`
	FailedActions   int             `json:"failed_actions"`
	Executed        []ActionResult  `json:"executed"`
	Failed          []ActionFailure `json:"failed"`
	DurationSeconds float64         `json:"duration_seconds"`
	ExecutedAt      time.Time       `json:"executed_at"`
}

// GenerateID creates a new unique scene identifier.
func GenerateID() string {
	return uuid.NewString()
}
