package device

import (
	"time"

	"github.com/google/uuid"
)

// Device types.
const (
	TypeLight          = "light"
	TypeSwitch         = "switch"
	TypeThermostat     = "thermostat"
	TypeSensor         = "sensor"
	TypeLock           = "lock"
	TypeBlind          = "blind"
	TypeCamera         = "camera"
	TypeIrrigation     = "irrigation"
	TypeEnvironmental  = "environmental"
	TypeSecuritySensor = "security_sensor"
)

// Device represents a single addressable device in the house.
//
// Status is a free-form attribute map (power, brightness, target_temp, ...)
// because device capabilities vary too much for a fixed schema. Updates
// merge key-by-key rather than replacing the map, so a brightness change
// never erases the power state.
type Device struct {
	ID         string    `json:"id"`
	HardwareID string    `json:"hardware_id"`
	Name       string    `json:"name"`
	Type       string    `json:"type"`
	RoomID     string    `json:"room_id,omitempty"`
	HouseID    string    `json:"house_id"`
	Status     Status    `json:"status"`
	Online     bool      `json:"online"`
	LastSeen   time.Time `json:"last_seen"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Status holds device state attributes keyed by attribute name.
// Values are JSON-compatible types (string, float64, bool, nested maps).
type Status map[string]any

// Merge applies the patch onto s key-by-key, returning the result.
// Keys present in the patch overwrite; keys absent from the patch survive.
// A nil receiver is treated as empty. The receiver is not modified.
func (s Status) Merge(patch Status) Status {
	merged := make(Status, len(s)+len(patch))
	for k, v := range s {
		merged[k] = v
	}
	for k, v := range patch {
		merged[k] = v
	}
	return merged
}

// DeepCopy returns a copy of the status with nested maps and slices copied.
func (s Status) DeepCopy() Status {
	if s == nil {
		return nil
	}
	return Status(deepCopyMap(s))
}

// DeepCopy returns a copy of the device safe to hand to callers.
// The Status map is deep-copied so mutations cannot leak back into the store.
func (d *Device) DeepCopy() *Device {
	if d == nil {
		return nil
	}
	clone := *d
	clone.Status = d.Status.DeepCopy()
	return &clone
}

// IsActuator reports whether the device accepts control commands.
func (d *Device) IsActuator() bool {
	switch d.Type {
	case TypeSensor, TypeEnvironmental, TypeSecuritySensor:
		return false
	default:
		return true
	}
}

// GenerateID creates a new unique device identifier.
func GenerateID() string {
	return uuid.NewString()
}

func deepCopyMap(m map[string]any) map[string]any {
	cp := make(map[string]any, len(m))
	for k, v := range m {
		cp[k] = deepCopyValue(v)
	}
	return cp
}

func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		cp := make([]any, len(val))
		for i, item := range val {
			cp[i] = deepCopyValue(item)
		}
		return cp
	default:
		return v
	}
}
