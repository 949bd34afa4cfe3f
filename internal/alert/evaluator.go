package alert

import (
	"fmt"
	"sync"
	"time"

	"github.com/hearthwise/hearth-core/internal/sensor"
)

// Evaluator checks sensor readings against alert thresholds.
//
// Threshold evaluation is stateless; the evaluator's only state is the
// cooldown tracker, which suppresses repeat alerts of the same type from
// the same device inside the cooldown window. A sensor sitting just over
// a threshold reports every few seconds, and without suppression each
// report would raise a fresh alert.
type Evaluator struct {
	cooldown time.Duration

	mu       sync.Mutex
	lastSent map[string]time.Time // "deviceID|type" → last alert time

	// now is stubbed in tests.
	now func() time.Time
}

// NewEvaluator creates an evaluator with the given cooldown window.
// A zero cooldown disables suppression.
func NewEvaluator(cooldown time.Duration) *Evaluator {
	return &Evaluator{
		cooldown: cooldown,
		lastSent: make(map[string]time.Time),
		now:      time.Now,
	}
}

// Evaluate checks a reading against all thresholds and returns the alerts
// to raise, cooldown-filtered. Channels absent from the reading are skipped.
func (e *Evaluator) Evaluate(reading *sensor.Reading) []*Event {
	violations := Check(reading)
	if len(violations) == 0 {
		return nil
	}

	now := e.now().UTC()
	events := make([]*Event, 0, len(violations))

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, v := range violations {
		key := reading.DeviceID + "|" + v.Type
		if e.cooldown > 0 {
			if last, ok := e.lastSent[key]; ok && now.Sub(last) < e.cooldown {
				continue
			}
		}
		e.lastSent[key] = now

		events = append(events, &Event{
			ID:        GenerateID(),
			DeviceID:  reading.DeviceID,
			HouseID:   reading.HouseID,
			Type:      v.Type,
			Severity:  v.Severity,
			Message:   v.Message,
			CreatedAt: now,
		})
	}

	return events
}

// Violation is one threshold breach found in a reading.
type Violation struct {
	Type     string
	Severity string
	Message  string
}

// Check applies the alert thresholds to a reading. It is pure: no cooldown,
// no side effects. The order of returned violations is fixed (fire, gas,
// temperature, soil).
func Check(reading *sensor.Reading) []Violation {
	var violations []Violation

	if reading.FlameDetected != nil && *reading.FlameDetected {
		violations = append(violations, Violation{
			Type:     TypeFire,
			Severity: SeverityHigh,
			Message:  "Flame detected!",
		})
	}

	if reading.GasLevel != nil && *reading.GasLevel > GasLevelThreshold {
		violations = append(violations, Violation{
			Type:     TypeGas,
			Severity: SeverityHigh,
			Message:  fmt.Sprintf("Gas level critical: %.1f", *reading.GasLevel),
		})
	}

	if reading.Temperature != nil && *reading.Temperature > TemperatureThreshold {
		violations = append(violations, Violation{
			Type:     TypeTemperature,
			Severity: SeverityMedium,
			Message:  fmt.Sprintf("High temperature: %.1f°C", *reading.Temperature),
		})
	}

	if reading.SoilMoisture != nil && *reading.SoilMoisture < SoilMoistureThreshold {
		violations = append(violations, Violation{
			Type:     TypeSoil,
			Severity: SeverityLow,
			Message:  fmt.Sprintf("Soil moisture low: %.1f%%", *reading.SoilMoisture),
		})
	}

	return violations
}
