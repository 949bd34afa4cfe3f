package alert

import (
	"testing"
	"time"

	"github.com/hearthwise/hearth-core/internal/sensor"
)

func floatPtr(v float64) *float64 { return &v }
func boolPtr(v bool) *bool        { return &v }

func TestCheckThresholds(t *testing.T) {
	tests := []struct {
		name    string
		reading sensor.Reading
		want    []string // expected alert types, in order
	}{
		{
			name:    "all channels nominal",
			reading: sensor.Reading{Temperature: floatPtr(21), GasLevel: floatPtr(10), SoilMoisture: floatPtr(45), FlameDetected: boolPtr(false)},
			want:    nil,
		},
		{
			name:    "flame detected",
			reading: sensor.Reading{FlameDetected: boolPtr(true)},
			want:    []string{TypeFire},
		},
		{
			name:    "gas over threshold",
			reading: sensor.Reading{GasLevel: floatPtr(85)},
			want:    []string{TypeGas},
		},
		{
			name:    "gas exactly at threshold does not alert",
			reading: sensor.Reading{GasLevel: floatPtr(80)},
			want:    nil,
		},
		{
			name:    "temperature over threshold",
			reading: sensor.Reading{Temperature: floatPtr(35.5)},
			want:    []string{TypeTemperature},
		},
		{
			name:    "soil moisture below threshold",
			reading: sensor.Reading{SoilMoisture: floatPtr(12)},
			want:    []string{TypeSoil},
		},
		{
			name:    "absent channels are skipped",
			reading: sensor.Reading{},
			want:    nil,
		},
		{
			name: "multiple breaches in fixed order",
			reading: sensor.Reading{
				FlameDetected: boolPtr(true),
				GasLevel:      floatPtr(90),
				Temperature:   floatPtr(40),
				SoilMoisture:  floatPtr(5),
			},
			want: []string{TypeFire, TypeGas, TypeTemperature, TypeSoil},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Check(&tt.reading)
			if len(got) != len(tt.want) {
				t.Fatalf("Check() returned %d violations, want %d", len(got), len(tt.want))
			}
			for i, v := range got {
				if v.Type != tt.want[i] {
					t.Errorf("violation %d type = %q, want %q", i, v.Type, tt.want[i])
				}
			}
		})
	}
}

func TestCheckSeverities(t *testing.T) {
	reading := sensor.Reading{
		FlameDetected: boolPtr(true),
		GasLevel:      floatPtr(90),
		Temperature:   floatPtr(40),
		SoilMoisture:  floatPtr(5),
	}

	want := map[string]string{
		TypeFire:        SeverityHigh,
		TypeGas:         SeverityHigh,
		TypeTemperature: SeverityMedium,
		TypeSoil:        SeverityLow,
	}

	for _, v := range Check(&reading) {
		if v.Severity != want[v.Type] {
			t.Errorf("%s severity = %q, want %q", v.Type, v.Severity, want[v.Type])
		}
	}
}

func TestEvaluatorCooldown(t *testing.T) {
	e := NewEvaluator(5 * time.Minute)
	current := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return current }

	reading := &sensor.Reading{DeviceID: "dev-1", HouseID: "house-1", GasLevel: floatPtr(95)}

	if got := e.Evaluate(reading); len(got) != 1 {
		t.Fatalf("first evaluation raised %d alerts, want 1", len(got))
	}

	// Same breach inside the window is suppressed.
	current = current.Add(2 * time.Minute)
	if got := e.Evaluate(reading); len(got) != 0 {
		t.Fatalf("evaluation inside cooldown raised %d alerts, want 0", len(got))
	}

	// A different alert type from the same device is not suppressed.
	flame := &sensor.Reading{DeviceID: "dev-1", HouseID: "house-1", FlameDetected: boolPtr(true)}
	if got := e.Evaluate(flame); len(got) != 1 {
		t.Fatalf("different alert type raised %d alerts, want 1", len(got))
	}

	// The same breach from another device is not suppressed.
	other := &sensor.Reading{DeviceID: "dev-2", HouseID: "house-1", GasLevel: floatPtr(95)}
	if got := e.Evaluate(other); len(got) != 1 {
		t.Fatalf("other device raised %d alerts, want 1", len(got))
	}

	// Past the window the alert fires again.
	current = current.Add(10 * time.Minute)
	if got := e.Evaluate(reading); len(got) != 1 {
		t.Fatalf("evaluation after cooldown raised %d alerts, want 1", len(got))
	}
}

func TestEvaluatorZeroCooldownDisablesSuppression(t *testing.T) {
	e := NewEvaluator(0)
	reading := &sensor.Reading{DeviceID: "dev-1", GasLevel: floatPtr(95)}

	for i := 0; i < 3; i++ {
		if got := e.Evaluate(reading); len(got) != 1 {
			t.Fatalf("evaluation %d raised %d alerts, want 1", i, len(got))
		}
	}
}

func TestEvaluatorPopulatesEvent(t *testing.T) {
	e := NewEvaluator(0)
	reading := &sensor.Reading{DeviceID: "dev-9", HouseID: "house-3", Temperature: floatPtr(38.2)}

	events := e.Evaluate(reading)
	if len(events) != 1 {
		t.Fatalf("raised %d alerts, want 1", len(events))
	}

	event := events[0]
	if event.ID == "" {
		t.Error("event ID not generated")
	}
	if event.DeviceID != "dev-9" || event.HouseID != "house-3" {
		t.Errorf("event attribution = %s/%s, want dev-9/house-3", event.DeviceID, event.HouseID)
	}
	if event.Type != TypeTemperature || event.Severity != SeverityMedium {
		t.Errorf("event classified as %s/%s", event.Type, event.Severity)
	}
	if event.Resolved {
		t.Error("new event marked resolved")
	}
	if event.CreatedAt.IsZero() {
		t.Error("event timestamp not set")
	}
}
