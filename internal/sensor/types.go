package sensor

import (
	"time"

	"github.com/google/uuid"
)

// Reading is one sensor report from a device.
//
// Measurement fields are pointers: devices report only the channels they
// have, and an absent channel is not the same as a zero value. Absent
// channels are skipped by alert evaluation and stored as NULL.
type Reading struct {
	ID            string    `json:"id"`
	DeviceID      string    `json:"device_id"`
	HouseID       string    `json:"house_id"`
	Temperature   *float64  `json:"temperature,omitempty"`
	Humidity      *float64  `json:"humidity,omitempty"`
	LightLevel    *float64  `json:"light_level,omitempty"`
	GasLevel      *float64  `json:"gas_level,omitempty"`
	FlameDetected *bool     `json:"flame_detected,omitempty"`
	SoilMoisture  *float64  `json:"soil_moisture,omitempty"`
	RecordedAt    time.Time `json:"recorded_at"`
}

// GenerateID creates a new unique reading identifier.
func GenerateID() string {
	return uuid.NewString()
}

// Fields returns the present measurement channels as a name→value map.
// Boolean channels are rendered as 1/0 so all values are numeric.
func (r *Reading) Fields() map[string]float64 {
	fields := make(map[string]float64, 6)
	if r.Temperature != nil {
		fields["temperature"] = *r.Temperature
	}
	if r.Humidity != nil {
		fields["humidity"] = *r.Humidity
	}
	if r.LightLevel != nil {
		fields["light_level"] = *r.LightLevel
	}
	if r.GasLevel != nil {
		fields["gas_level"] = *r.GasLevel
	}
	if r.FlameDetected != nil {
		if *r.FlameDetected {
			fields["flame_detected"] = 1
		} else {
			fields["flame_detected"] = 0
		}
	}
	if r.SoilMoisture != nil {
		fields["soil_moisture"] = *r.SoilMoisture
	}
	return fields
}
