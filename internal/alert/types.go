package alert

import (
	"time"

	"github.com/google/uuid"
)

// Alert types.
const (
	TypeFire        = "fire"
	TypeGas         = "gas"
	TypeTemperature = "temperature"
	TypeSoil        = "soil"
)

// Alert severities.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// Evaluation thresholds.
//
// Gas level and soil moisture are relative percentages; temperature is
// degrees Celsius.
const (
	GasLevelThreshold     = 80.0
	TemperatureThreshold  = 35.0
	SoilMoistureThreshold = 20.0
)

// Event is a single raised alert.
type Event struct {
	ID         string     `json:"id"`
	DeviceID   string     `json:"device_id"`
	HouseID    string     `json:"house_id"`
	Type       string     `json:"type"`
	Severity   string     `json:"severity"`
	Message    string     `json:"message"`
	Resolved   bool       `json:"resolved"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// GenerateID creates a new unique alert identifier.
func GenerateID() string {
	return uuid.NewString()
}
