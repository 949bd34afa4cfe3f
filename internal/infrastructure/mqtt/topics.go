package mqtt

import "fmt"

// DefaultPrefix is the root of the Hearth topic namespace.
const DefaultPrefix = "hearth"

// Topics builds topic strings for the Hearth namespace.
//
// Topic structure:
//
//	{prefix}/sensors/{deviceID}/data      - sensor readings (inbound)
//	{prefix}/devices/{deviceID}/status    - device-confirmed state (inbound)
//	{prefix}/devices/{deviceID}/heartbeat - liveness beacons (inbound)
//	{prefix}/devices/{deviceID}/control   - commands to devices (outbound)
//	{prefix}/scenes/execute               - scene broadcast (outbound)
//	{prefix}/alerts/{deviceID}            - alert notifications (outbound)
//	{prefix}/system/alerts                - device-originated alerts (inbound)
//	{prefix}/system/status                - backend online/offline (retained)
//
// Usage:
//
//	t := Topics{Prefix: cfg.MQTT.TopicPrefix}
//	client.Publish(t.DeviceControl(deviceID), payload)
type Topics struct {
	Prefix string
}

func (t Topics) root() string {
	if t.Prefix == "" {
		return DefaultPrefix
	}
	return t.Prefix
}

// SensorData returns the topic a device publishes readings on.
func (t Topics) SensorData(deviceID string) string {
	return fmt.Sprintf("%s/sensors/%s/data", t.root(), deviceID)
}

// AllSensorData returns the wildcard filter for all sensor readings.
func (t Topics) AllSensorData() string {
	return fmt.Sprintf("%s/sensors/+/data", t.root())
}

// DeviceStatus returns the topic a device confirms its state on.
func (t Topics) DeviceStatus(deviceID string) string {
	return fmt.Sprintf("%s/devices/%s/status", t.root(), deviceID)
}

// AllDeviceStatus returns the wildcard filter for all device status updates.
func (t Topics) AllDeviceStatus() string {
	return fmt.Sprintf("%s/devices/+/status", t.root())
}

// DeviceHeartbeat returns the topic a device publishes liveness beacons on.
func (t Topics) DeviceHeartbeat(deviceID string) string {
	return fmt.Sprintf("%s/devices/%s/heartbeat", t.root(), deviceID)
}

// AllDeviceHeartbeats returns the wildcard filter for all heartbeats.
func (t Topics) AllDeviceHeartbeats() string {
	return fmt.Sprintf("%s/devices/+/heartbeat", t.root())
}

// DeviceControl returns the topic commands are sent to a device on.
func (t Topics) DeviceControl(deviceID string) string {
	return fmt.Sprintf("%s/devices/%s/control", t.root(), deviceID)
}

// SceneExecute returns the broadcast topic for scene execution.
func (t Topics) SceneExecute() string {
	return fmt.Sprintf("%s/scenes/execute", t.root())
}

// Alert returns the outbound notification topic for a device's alerts.
func (t Topics) Alert(deviceID string) string {
	return fmt.Sprintf("%s/alerts/%s", t.root(), deviceID)
}

// SystemAlert returns the outbound topic for alerts with no originating device.
func (t Topics) SystemAlert() string {
	return fmt.Sprintf("%s/alerts/system", t.root())
}

// SystemAlerts returns the inbound topic devices raise their own alerts on.
func (t Topics) SystemAlerts() string {
	return fmt.Sprintf("%s/system/alerts", t.root())
}

// SystemStatus returns the retained backend online/offline topic.
func (t Topics) SystemStatus() string {
	return fmt.Sprintf("%s/system/status", t.root())
}
