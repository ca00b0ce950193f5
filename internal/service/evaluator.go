package service

import (
	"enclosure_gateway/internal/models"
)

// GasLeakThreshold is the reading above which a leak alert is raised.
const GasLeakThreshold = 400.0

// Log messages emitted by the evaluator.
const (
	MsgFlameDetected = "Flame detected"
	MsgRainDetected  = "Rain detected"
	MsgGasLeak       = "Gas leak detected"

	msgDoorStatePrefix   = "Door state: "
	msgCanopyStatePrefix = "Canopy state: "
)

// Entry kinds, one per evaluator rule plus executed commands. Unlike the
// message text they form a closed set.
const (
	KindFlame    = "flame"
	KindRain     = "rain"
	KindGas      = "gas"
	KindDoor     = "door"
	KindCanopy   = "canopy"
	KindExecuted = "executed"
)

// Candidate is a log-worthy observation that still has to pass the guards.
type Candidate struct {
	Kind    string
	Message string
	// Transition marks door/canopy changes, which are subject to the debounce guard.
	Transition bool
}

// Evaluate inspects one reconciled update. Alerts look at the fields carried by
// the update itself; transitions compare the update against the pre-merge
// door and canopy. Order: flame, rain, gas, door, canopy.
func Evaluate(u models.StateUpdate, prevDoor, prevCanopy string) []Candidate {
	var out []Candidate

	if u.Flame != nil && *u.Flame == models.FlameDetected {
		out = append(out, Candidate{Kind: KindFlame, Message: MsgFlameDetected})
	}
	if u.Rain != nil && *u.Rain == models.RainPresent {
		out = append(out, Candidate{Kind: KindRain, Message: MsgRainDetected})
	}
	if u.Gas != nil && *u.Gas > GasLeakThreshold {
		out = append(out, Candidate{Kind: KindGas, Message: MsgGasLeak})
	}
	if u.Door != nil && *u.Door != prevDoor {
		out = append(out, Candidate{Kind: KindDoor, Message: msgDoorStatePrefix + *u.Door, Transition: true})
	}
	if u.Canopy != nil && *u.Canopy != prevCanopy {
		out = append(out, Candidate{Kind: KindCanopy, Message: msgCanopyStatePrefix + *u.Canopy, Transition: true})
	}
	return out
}
