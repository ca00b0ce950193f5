package models

// Sensor and actuator values reported by the enclosure controller.
const (
	FlameNone     = "none"
	FlameDetected = "detected"

	RainNone    = "none"
	RainPresent = "present"

	PositionOpen          = "open"
	PositionClosed        = "closed"
	PositionTransitioning = "transitioning"

	// ValueUnknown is the placeholder for a sensor that has not reported yet.
	ValueUnknown = "unknown"
)

// DeviceState is the merged, authoritative snapshot of the enclosure.
type DeviceState struct {
	Flame  string  `json:"flame"`  // none | detected
	Rain   string  `json:"rain"`   // none | present
	Gas    float64 `json:"gas"`    // raw concentration reading
	Door   string  `json:"door"`   // open | closed | transitioning
	Canopy string  `json:"canopy"` // open | closed | transitioning
}

// InitialDeviceState returns the placeholder state used before any telemetry arrives.
func InitialDeviceState() DeviceState {
	return DeviceState{
		Flame:  ValueUnknown,
		Rain:   ValueUnknown,
		Gas:    0,
		Door:   PositionClosed,
		Canopy: PositionClosed,
	}
}

// StateUpdate is one partial telemetry reading. Nil fields were absent from the message.
type StateUpdate struct {
	Flame  *string  `json:"flame,omitempty"`
	Rain   *string  `json:"rain,omitempty"`
	Gas    *float64 `json:"gas,omitempty"`
	Door   *string  `json:"door,omitempty"`
	Canopy *string  `json:"canopy,omitempty"`
}

// Empty reports whether the update carries no known field.
func (u StateUpdate) Empty() bool {
	return u.Flame == nil && u.Rain == nil && u.Gas == nil && u.Door == nil && u.Canopy == nil
}
