package gateway

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/hearthwise/hearth-core/internal/alert"
	"github.com/hearthwise/hearth-core/internal/scene"
)

// controlEnvelope is the wire format for device commands.
type controlEnvelope struct {
	DeviceID  string         `json:"deviceId"`
	Command   controlCommand `json:"command"`
	Timestamp string         `json:"timestamp"`
	MessageID string         `json:"messageId"`
}

type controlCommand struct {
	Action     string         `json:"action"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// PublishControl sends a command to a device's control topic.
//
// Returns whether the publish succeeded. Failure is logged but not
// escalated: the caller records the outcome per action.
func (g *Gateway) PublishControl(deviceID, action string, parameters map[string]any) bool {
	envelope := controlEnvelope{
		DeviceID: deviceID,
		Command: controlCommand{
			Action:     action,
			Parameters: parameters,
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		MessageID: uuid.NewString(),
	}

	return g.publishJSON(g.topics.DeviceControl(deviceID), envelope)
}

// PublishSceneBroadcast announces a scene execution on the shared scene
// topic, for devices that react to scenes as a whole rather than to
// individual commands.
func (g *Gateway) PublishSceneBroadcast(sceneName string, actions []scene.Action) bool {
	payload := map[string]any{
		"sceneName": sceneName,
		"actions":   actions,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	return g.publishJSON(g.topics.SceneExecute(), payload)
}

// PublishAlert publishes an alert notification.
//
// Device-scoped alerts go to the device's alert topic; alerts with no
// originating device go to the system alert topic.
func (g *Gateway) PublishAlert(event *alert.Event) bool {
	topic := g.topics.SystemAlert()
	if event.DeviceID != "" {
		topic = g.topics.Alert(event.DeviceID)
	}

	payload := map[string]any{
		"id":        event.ID,
		"deviceId":  event.DeviceID,
		"type":      event.Type,
		"severity":  event.Severity,
		"message":   event.Message,
		"timestamp": event.CreatedAt.Format(time.RFC3339),
	}

	return g.publishJSON(topic, payload)
}

func (g *Gateway) publishJSON(topic string, v any) bool {
	payload, err := json.Marshal(v)
	if err != nil {
		g.logger.Error("outbound payload not marshallable", "topic", topic, "error", err)
		return false
	}

	if err := g.bus.Publish(topic, payload); err != nil {
		g.logger.Warn("publish failed", "topic", topic, "error", err)
		return false
	}

	return true
}
