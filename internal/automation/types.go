package automation

import (
	"time"

	"github.com/google/uuid"

	"github.com/hearthwise/hearth-core/internal/scene"
)

// Condition kinds.
const (
	KindTime   = "time"
	KindSensor = "sensor"
	KindDevice = "device"
)

// Condition operators.
const (
	OpEqual        = "=="
	OpGreater      = ">"
	OpLess         = "<"
	OpGreaterEqual = ">="
	OpLessEqual    = "<="
)

// Condition logic for combining a rule's conditions.
const (
	LogicAnd = "AND"
	LogicOr  = "OR"
)

// Condition is one typed predicate in a rule.
//
// Kind selects the data source:
//   - time: Parameter is "hour" or "minute", read from the wall clock
//   - sensor: Parameter names a metric on DeviceID's latest reading
//   - device: Parameter names a status attribute of DeviceID
//
// Value is the comparison operand; its interpretation depends on the kind
// and operator (numeric for time and sensor, string or numeric for device).
type Condition struct {
	Kind      string `json:"kind"`
	DeviceID  string `json:"device_id,omitempty"`
	Parameter string `json:"parameter"`
	Operator  string `json:"operator"`
	Value     any    `json:"value"`
}

// Rule is a condition-action pair evaluated on a schedule.
type Rule struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	HouseID        string         `json:"house_id"`
	Conditions     []Condition    `json:"conditions"`
	ConditionLogic string         `json:"condition_logic"`
	Actions        []scene.Action `json:"actions"`
	Active         bool           `json:"active"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// GenerateID creates a new unique rule identifier.
func GenerateID() string {
	return uuid.NewString()
}
