package mqtt

import (
	"errors"
	"testing"
	"time"
)

func TestBackoffDelaySequence(t *testing.T) {
	initial := 2 * time.Second
	maxDelay := 60 * time.Second

	want := []time.Duration{
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		32 * time.Second,
		60 * time.Second,
		60 * time.Second,
	}

	var previous time.Duration
	for attempt := 1; attempt <= len(want); attempt++ {
		got := backoffDelay(attempt, initial, maxDelay)

		if got != want[attempt-1] {
			t.Errorf("attempt %d delay = %v, want %v", attempt, got, want[attempt-1])
		}
		if got < previous {
			t.Errorf("attempt %d delay %v decreased from %v", attempt, got, previous)
		}
		if got > maxDelay {
			t.Errorf("attempt %d delay %v exceeds cap %v", attempt, got, maxDelay)
		}
		previous = got
	}
}

func TestBackoffDelayClampsAttempt(t *testing.T) {
	if got := backoffDelay(0, 2*time.Second, 60*time.Second); got != 2*time.Second {
		t.Errorf("attempt 0 delay = %v, want initial", got)
	}
	// A large attempt count must not overflow past the cap.
	if got := backoffDelay(100, 2*time.Second, 60*time.Second); got != 60*time.Second {
		t.Errorf("attempt 100 delay = %v, want cap", got)
	}
}

func TestClassifyConnectError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"bad credentials", errors.New("connection refused: bad user name or password"), FailureCredentials},
		{"not authorized", errors.New("connection refused: not Authorized"), FailureCredentials},
		{"protocol mismatch", errors.New("connection refused: unacceptable protocol version"), FailureProtocol},
		{"network", errors.New("dial tcp 10.0.0.5:1883: connect: connection refused"), FailureUnreachable},
		{"timeout", errors.New("network error: i/o timeout"), FailureUnreachable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyConnectError(tt.err); got != tt.want {
				t.Errorf("ClassifyConnectError() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidateTopicFilter(t *testing.T) {
	tests := []struct {
		topic   string
		wantErr bool
	}{
		{"hearth/sensors/+/data", false},
		{"hearth/devices/abc/control", false},
		{"hearth/#", false},
		{"", true},
		{"hearth/#/devices", true},
		{"hearth/dev#", true},
		{"hearth/a+b/data", true},
	}

	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			err := validateTopicFilter(tt.topic)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateTopicFilter(%q) error = %v, wantErr %v", tt.topic, err, tt.wantErr)
			}
		})
	}
}

func TestTopics(t *testing.T) {
	tp := Topics{Prefix: "hearth"}

	tests := []struct {
		got  string
		want string
	}{
		{tp.SensorData("dev-1"), "hearth/sensors/dev-1/data"},
		{tp.AllSensorData(), "hearth/sensors/+/data"},
		{tp.DeviceStatus("dev-1"), "hearth/devices/dev-1/status"},
		{tp.AllDeviceStatus(), "hearth/devices/+/status"},
		{tp.DeviceHeartbeat("dev-1"), "hearth/devices/dev-1/heartbeat"},
		{tp.AllDeviceHeartbeats(), "hearth/devices/+/heartbeat"},
		{tp.DeviceControl("dev-1"), "hearth/devices/dev-1/control"},
		{tp.SceneExecute(), "hearth/scenes/execute"},
		{tp.Alert("dev-1"), "hearth/alerts/dev-1"},
		{tp.SystemAlert(), "hearth/alerts/system"},
		{tp.SystemAlerts(), "hearth/system/alerts"},
		{tp.SystemStatus(), "hearth/system/status"},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("topic = %q, want %q", tt.got, tt.want)
		}
	}

	// An empty prefix falls back to the default namespace.
	if got := (Topics{}).SceneExecute(); got != "hearth/scenes/execute" {
		t.Errorf("default prefix topic = %q", got)
	}
}
