package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hearthwise/hearth-core/internal/alert"
	"github.com/hearthwise/hearth-core/internal/device"
	"github.com/hearthwise/hearth-core/internal/infrastructure/mqtt"
	"github.com/hearthwise/hearth-core/internal/sensor"
)

// Bus is the broker surface the gateway needs.
// Satisfied by *mqtt.Client; narrowed for testing.
type Bus interface {
	Subscribe(topic string, handler mqtt.MessageHandler) error
	Publish(topic string, payload []byte) error
	Status() mqtt.Status
	IsConnected() bool
}

// DeviceSink receives device state updates parsed from the bus.
// Satisfied by *device.Store; narrowed for testing.
type DeviceSink interface {
	ApplyConfirmed(ctx context.Context, id string, patch device.Status) (*device.Device, error)
	Heartbeat(ctx context.Context, id string, attrs device.Status) error
}

// ReadingSink persists sensor readings.
// Satisfied by *sensor.Repository; narrowed for testing.
type ReadingSink interface {
	Insert(ctx context.Context, reading *sensor.Reading) error
}

// AlertSink persists alert events.
// Satisfied by *alert.Repository; narrowed for testing.
type AlertSink interface {
	Insert(ctx context.Context, event *alert.Event) error
}

// Mirror receives a copy of every sensor reading, for time-series export.
// Optional; a nil mirror disables export.
type Mirror interface {
	WriteReading(ctx context.Context, reading *sensor.Reading)
}

// Logger is the minimal logging surface the gateway needs.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Gateway routes traffic between the bus and the core subsystems.
//
// Inbound: sensor readings are persisted, mirrored, and run through alert
// evaluation; device status and heartbeats update the device store;
// device-originated alerts are re-raised. A malformed payload is logged
// and dropped. One bad message never takes anything down.
//
// Outbound: control commands, scene broadcasts, and alert notifications
// are enveloped and published. Outbound publishes report success as a
// bool rather than an error: callers like the scene executor record the
// outcome and move on, they do not unwind.
type Gateway struct {
	bus       Bus
	topics    mqtt.Topics
	devices   DeviceSink
	readings  ReadingSink
	alerts    AlertSink
	evaluator *alert.Evaluator
	mirror    Mirror
	logger    Logger

	houseID string
}

// Config collects the gateway's collaborators.
type Config struct {
	Bus       Bus
	Topics    mqtt.Topics
	Devices   DeviceSink
	Readings  ReadingSink
	Alerts    AlertSink
	Evaluator *alert.Evaluator
	Mirror    Mirror
	Logger    Logger
	HouseID   string
}

// New creates a gateway. Subscriptions are not established until Start.
func New(cfg Config) *Gateway {
	return &Gateway{
		bus:       cfg.Bus,
		topics:    cfg.Topics,
		devices:   cfg.Devices,
		readings:  cfg.Readings,
		alerts:    cfg.Alerts,
		evaluator: cfg.Evaluator,
		mirror:    cfg.Mirror,
		logger:    cfg.Logger,
		houseID:   cfg.HouseID,
	}
}

// Start subscribes to all inbound topics.
//
// The ctx is retained for the lifetime of the subscriptions and bounds the
// work done by message handlers.
func (g *Gateway) Start(ctx context.Context) error {
	subs := []struct {
		topic   string
		handler mqtt.MessageHandler
	}{
		{g.topics.AllSensorData(), func(topic string, payload []byte) error {
			return g.handleSensorData(ctx, topic, payload)
		}},
		{g.topics.AllDeviceStatus(), func(topic string, payload []byte) error {
			return g.handleDeviceStatus(ctx, topic, payload)
		}},
		{g.topics.AllDeviceHeartbeats(), func(topic string, payload []byte) error {
			return g.handleHeartbeat(ctx, topic, payload)
		}},
		{g.topics.SystemAlerts(), func(topic string, payload []byte) error {
			return g.handleDeviceAlert(ctx, payload)
		}},
	}

	for _, sub := range subs {
		if err := g.bus.Subscribe(sub.topic, sub.handler); err != nil {
			return fmt.Errorf("subscribe %s: %w", sub.topic, err)
		}
	}

	g.logger.Info("gateway subscriptions established", "count", len(subs))
	return nil
}

// Status returns the bus connection status for monitoring.
func (g *Gateway) Status() mqtt.Status {
	return g.bus.Status()
}

// handleSensorData ingests one sensor reading.
func (g *Gateway) handleSensorData(ctx context.Context, topic string, payload []byte) error {
	deviceID, ok := deviceIDFromTopic(topic)
	if !ok {
		return fmt.Errorf("unroutable sensor topic %q", topic)
	}

	var reading sensor.Reading
	if err := json.Unmarshal(payload, &reading); err != nil {
		g.logger.Warn("malformed sensor payload dropped", "topic", topic, "error", err)
		return nil
	}

	reading.ID = sensor.GenerateID()
	reading.DeviceID = deviceID
	reading.HouseID = g.houseID
	if reading.RecordedAt.IsZero() {
		reading.RecordedAt = time.Now().UTC()
	}

	if err := g.readings.Insert(ctx, &reading); err != nil {
		g.logger.Error("sensor reading not persisted", "device", deviceID, "error", err)
	}

	if g.mirror != nil {
		g.mirror.WriteReading(ctx, &reading)
	}

	// A reading also proves the device is alive.
	if _, err := g.devices.ApplyConfirmed(ctx, deviceID, nil); err != nil {
		g.logger.Warn("reading from unknown device", "device", deviceID)
	}

	for _, event := range g.evaluator.Evaluate(&reading) {
		g.raiseAlert(ctx, event)
	}

	return nil
}

// handleDeviceStatus applies a device-confirmed state report.
func (g *Gateway) handleDeviceStatus(ctx context.Context, topic string, payload []byte) error {
	deviceID, ok := deviceIDFromTopic(topic)
	if !ok {
		return fmt.Errorf("unroutable status topic %q", topic)
	}

	patch, err := parseStatusPayload(payload)
	if err != nil {
		g.logger.Warn("malformed status payload dropped", "topic", topic, "error", err)
		return nil
	}

	if _, err := g.devices.ApplyConfirmed(ctx, deviceID, patch); err != nil {
		g.logger.Warn("status for unknown device", "device", deviceID, "error", err)
	}

	return nil
}

// handleHeartbeat records a liveness beacon.
func (g *Gateway) handleHeartbeat(ctx context.Context, topic string, payload []byte) error {
	deviceID, ok := deviceIDFromTopic(topic)
	if !ok {
		return fmt.Errorf("unroutable heartbeat topic %q", topic)
	}

	var beacon struct {
		Battery *float64 `json:"battery"`
		Signal  *float64 `json:"signal"`
	}
	// Heartbeats may be empty; an unparseable body still counts as liveness.
	_ = json.Unmarshal(payload, &beacon)

	attrs := device.Status{}
	if beacon.Battery != nil {
		attrs["battery"] = *beacon.Battery
	}
	if beacon.Signal != nil {
		attrs["signal"] = *beacon.Signal
	}

	if err := g.devices.Heartbeat(ctx, deviceID, attrs); err != nil {
		g.logger.Warn("heartbeat from unknown device", "device", deviceID)
	}

	return nil
}

// handleDeviceAlert re-raises an alert a device published itself.
func (g *Gateway) handleDeviceAlert(ctx context.Context, payload []byte) error {
	var incoming struct {
		DeviceID string `json:"device_id"`
		Type     string `json:"type"`
		Severity string `json:"severity"`
		Message  string `json:"message"`
	}
	if err := json.Unmarshal(payload, &incoming); err != nil {
		g.logger.Warn("malformed device alert dropped", "error", err)
		return nil
	}
	if incoming.Type == "" {
		g.logger.Warn("device alert missing type dropped")
		return nil
	}
	if incoming.Severity == "" {
		incoming.Severity = alert.SeverityMedium
	}

	g.raiseAlert(ctx, &alert.Event{
		ID:        alert.GenerateID(),
		DeviceID:  incoming.DeviceID,
		HouseID:   g.houseID,
		Type:      incoming.Type,
		Severity:  incoming.Severity,
		Message:   incoming.Message,
		CreatedAt: time.Now().UTC(),
	})

	return nil
}

// raiseAlert persists an alert and publishes the notification.
func (g *Gateway) raiseAlert(ctx context.Context, event *alert.Event) {
	if err := g.alerts.Insert(ctx, event); err != nil {
		g.logger.Error("alert not persisted", "type", event.Type, "error", err)
	}

	g.PublishAlert(event)

	g.logger.Info("alert raised",
		"type", event.Type,
		"severity", event.Severity,
		"device", event.DeviceID,
	)
}

// parseStatusPayload extracts a status patch from a device report.
// Devices publish either {"status": {...}} or a bare attribute object.
func parseStatusPayload(payload []byte) (device.Status, error) {
	var envelope struct {
		Status map[string]any `json:"status"`
	}
	if err := json.Unmarshal(payload, &envelope); err == nil && envelope.Status != nil {
		return device.Status(envelope.Status), nil
	}

	var flat map[string]any
	if err := json.Unmarshal(payload, &flat); err != nil {
		return nil, err
	}
	return device.Status(flat), nil
}

// deviceIDFromTopic extracts the device segment from an inbound topic
// ({prefix}/{class}/{deviceID}/{leaf}).
func deviceIDFromTopic(topic string) (string, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) < 4 || parts[2] == "" {
		return "", false
	}
	return parts[2], true
}
