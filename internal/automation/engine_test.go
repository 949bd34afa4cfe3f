package automation

import (
	"context"
	"testing"
	"time"

	"github.com/hearthwise/hearth-core/internal/device"
	"github.com/hearthwise/hearth-core/internal/scene"
	"github.com/hearthwise/hearth-core/internal/sensor"
)

type mockRuleSource struct {
	rules []*Rule
}

func (m *mockRuleSource) ListActive(context.Context) ([]*Rule, error) {
	return m.rules, nil
}

type mockDeviceStore struct {
	devices map[string]*device.Device
}

func (m *mockDeviceStore) Get(id string) (*device.Device, error) {
	d, ok := m.devices[id]
	if !ok {
		return nil, device.ErrNotFound
	}
	return d, nil
}

type mockReadingSource struct {
	readings map[string]*sensor.Reading
}

func (m *mockReadingSource) LatestByDevice(_ context.Context, deviceID string) (*sensor.Reading, error) {
	r, ok := m.readings[deviceID]
	if !ok {
		return nil, sensor.ErrNoReadings
	}
	return r, nil
}

type mockRunner struct {
	fired []string
}

func (m *mockRunner) ExecuteActions(_ context.Context, name string, _ []scene.Action, _ string) (*scene.ExecutionResult, error) {
	m.fired = append(m.fired, name)
	return &scene.ExecutionResult{Success: true}, nil
}

func floatPtr(v float64) *float64 { return &v }

func newTestEngine(rules *mockRuleSource, devices *mockDeviceStore, readings *mockReadingSource, runner *mockRunner) *Engine {
	if rules == nil {
		rules = &mockRuleSource{}
	}
	if devices == nil {
		devices = &mockDeviceStore{devices: map[string]*device.Device{}}
	}
	if readings == nil {
		readings = &mockReadingSource{readings: map[string]*sensor.Reading{}}
	}
	if runner == nil {
		runner = &mockRunner{}
	}
	return NewEngine(rules, devices, readings, runner, nil, 30*time.Second)
}

func TestEvaluateTimeCondition(t *testing.T) {
	tests := []struct {
		name string
		cond Condition
		hour int
		min  int
		want bool
	}{
		{"hour equals", Condition{Kind: KindTime, Parameter: "hour", Operator: OpEqual, Value: float64(7)}, 7, 0, true},
		{"hour differs", Condition{Kind: KindTime, Parameter: "hour", Operator: OpEqual, Value: float64(7)}, 8, 0, false},
		{"hour greater", Condition{Kind: KindTime, Parameter: "hour", Operator: OpGreater, Value: float64(20)}, 22, 0, true},
		{"hour less", Condition{Kind: KindTime, Parameter: "hour", Operator: OpLess, Value: float64(6)}, 5, 30, true},
		{"minute equals", Condition{Kind: KindTime, Parameter: "minute", Operator: OpEqual, Value: float64(30)}, 12, 30, true},
		{"unknown parameter", Condition{Kind: KindTime, Parameter: "second", Operator: OpEqual, Value: float64(0)}, 12, 0, false},
		{"non-numeric value", Condition{Kind: KindTime, Parameter: "hour", Operator: OpEqual, Value: "noon"}, 12, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(nil, nil, nil, nil)
			e.now = func() time.Time {
				return time.Date(2026, 3, 1, tt.hour, tt.min, 0, 0, time.UTC)
			}

			rule := &Rule{Conditions: []Condition{tt.cond}, ConditionLogic: LogicAnd}
			if got := e.Evaluate(context.Background(), rule); got != tt.want {
				t.Errorf("Evaluate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateSensorCondition(t *testing.T) {
	readings := &mockReadingSource{readings: map[string]*sensor.Reading{
		"env-1": {DeviceID: "env-1", Temperature: floatPtr(21.05), Humidity: floatPtr(60)},
	}}

	tests := []struct {
		name string
		cond Condition
		want bool
	}{
		{
			"equality within epsilon",
			Condition{Kind: KindSensor, DeviceID: "env-1", Parameter: "temperature", Operator: OpEqual, Value: float64(21.0)},
			true,
		},
		{
			"equality outside epsilon",
			Condition{Kind: KindSensor, DeviceID: "env-1", Parameter: "temperature", Operator: OpEqual, Value: float64(21.2)},
			false,
		},
		{
			"greater than",
			Condition{Kind: KindSensor, DeviceID: "env-1", Parameter: "humidity", Operator: OpGreater, Value: float64(50)},
			true,
		},
		{
			"metric absent from reading",
			Condition{Kind: KindSensor, DeviceID: "env-1", Parameter: "gas_level", Operator: OpGreater, Value: float64(0)},
			false,
		},
		{
			"no readings for device",
			Condition{Kind: KindSensor, DeviceID: "ghost", Parameter: "temperature", Operator: OpGreater, Value: float64(0)},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(nil, nil, readings, nil)
			rule := &Rule{Conditions: []Condition{tt.cond}, ConditionLogic: LogicAnd}
			if got := e.Evaluate(context.Background(), rule); got != tt.want {
				t.Errorf("Evaluate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateDeviceCondition(t *testing.T) {
	devices := &mockDeviceStore{devices: map[string]*device.Device{
		"light-1": {ID: "light-1", Status: device.Status{"power": "on", "brightness": float64(75)}},
	}}

	tests := []struct {
		name string
		cond Condition
		want bool
	}{
		{
			"string equality",
			Condition{Kind: KindDevice, DeviceID: "light-1", Parameter: "power", Operator: OpEqual, Value: "on"},
			true,
		},
		{
			"string inequality",
			Condition{Kind: KindDevice, DeviceID: "light-1", Parameter: "power", Operator: OpEqual, Value: "off"},
			false,
		},
		{
			"numeric comparison",
			Condition{Kind: KindDevice, DeviceID: "light-1", Parameter: "brightness", Operator: OpGreater, Value: float64(50)},
			true,
		},
		{
			"numeric coercion failure",
			Condition{Kind: KindDevice, DeviceID: "light-1", Parameter: "power", Operator: OpGreater, Value: float64(1)},
			false,
		},
		{
			"attribute absent",
			Condition{Kind: KindDevice, DeviceID: "light-1", Parameter: "volume", Operator: OpEqual, Value: "10"},
			false,
		},
		{
			"device absent",
			Condition{Kind: KindDevice, DeviceID: "ghost", Parameter: "power", Operator: OpEqual, Value: "on"},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(nil, devices, nil, nil)
			rule := &Rule{Conditions: []Condition{tt.cond}, ConditionLogic: LogicAnd}
			if got := e.Evaluate(context.Background(), rule); got != tt.want {
				t.Errorf("Evaluate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateConditionLogic(t *testing.T) {
	// power=="on" is true, brightness>100 is false against this device.
	devices := &mockDeviceStore{devices: map[string]*device.Device{
		"light-1": {ID: "light-1", Status: device.Status{"power": "on", "brightness": float64(75)}},
	}}

	trueCond := Condition{Kind: KindDevice, DeviceID: "light-1", Parameter: "power", Operator: OpEqual, Value: "on"}
	falseCond := Condition{Kind: KindDevice, DeviceID: "light-1", Parameter: "brightness", Operator: OpGreater, Value: float64(100)}

	tests := []struct {
		name       string
		logic      string
		conditions []Condition
		want       bool
	}{
		{"AND all true", LogicAnd, []Condition{trueCond, trueCond}, true},
		{"AND one false", LogicAnd, []Condition{trueCond, falseCond}, false},
		{"OR one true", LogicOr, []Condition{falseCond, trueCond}, true},
		{"OR all false", LogicOr, []Condition{falseCond, falseCond}, false},
		{"empty logic defaults to AND", "", []Condition{trueCond, falseCond}, false},
		{"no conditions", LogicAnd, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(nil, devices, nil, nil)
			rule := &Rule{Conditions: tt.conditions, ConditionLogic: tt.logic}
			if got := e.Evaluate(context.Background(), rule); got != tt.want {
				t.Errorf("Evaluate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateAllEdgeTriggered(t *testing.T) {
	devices := &mockDeviceStore{devices: map[string]*device.Device{
		"light-1": {ID: "light-1", Status: device.Status{"power": "off"}},
	}}
	rules := &mockRuleSource{rules: []*Rule{{
		ID:             "rule-1",
		Name:           "Porch on",
		Active:         true,
		ConditionLogic: LogicAnd,
		Conditions: []Condition{
			{Kind: KindDevice, DeviceID: "light-1", Parameter: "power", Operator: OpEqual, Value: "on"},
		},
		Actions: []scene.Action{{DeviceID: "light-1", Action: "turn_on"}},
	}}}
	runner := &mockRunner{}
	e := newTestEngine(rules, devices, nil, runner)
	ctx := context.Background()

	// Condition false: no firing.
	if err := e.EvaluateAll(ctx); err != nil {
		t.Fatalf("EvaluateAll() error = %v", err)
	}
	if len(runner.fired) != 0 {
		t.Fatalf("fired %d times with false condition", len(runner.fired))
	}

	// Condition becomes true: fires once.
	devices.devices["light-1"].Status["power"] = "on"
	if err := e.EvaluateAll(ctx); err != nil {
		t.Fatalf("EvaluateAll() error = %v", err)
	}
	if len(runner.fired) != 1 {
		t.Fatalf("fired %d times on transition, want 1", len(runner.fired))
	}

	// Condition stays true: no re-fire.
	if err := e.EvaluateAll(ctx); err != nil {
		t.Fatalf("EvaluateAll() error = %v", err)
	}
	if len(runner.fired) != 1 {
		t.Fatalf("fired %d times while condition held, want 1", len(runner.fired))
	}

	// Condition drops then recovers: fires again.
	devices.devices["light-1"].Status["power"] = "off"
	if err := e.EvaluateAll(ctx); err != nil {
		t.Fatalf("EvaluateAll() error = %v", err)
	}
	devices.devices["light-1"].Status["power"] = "on"
	if err := e.EvaluateAll(ctx); err != nil {
		t.Fatalf("EvaluateAll() error = %v", err)
	}
	if len(runner.fired) != 2 {
		t.Fatalf("fired %d times after recovery, want 2", len(runner.fired))
	}
}

func TestToFloat(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  float64
		ok    bool
	}{
		{"float64", float64(3.5), 3.5, true},
		{"int", 7, 7, true},
		{"numeric string", "21.5", 21.5, true},
		{"non-numeric string", "on", 0, false},
		{"bool true", true, 1, true},
		{"nil", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := toFloat(tt.value)
			if ok != tt.ok || got != tt.want {
				t.Errorf("toFloat(%v) = (%v, %v), want (%v, %v)", tt.value, got, ok, tt.want, tt.ok)
			}
		})
	}
}
