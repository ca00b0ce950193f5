package service

import "enclosure_gateway/internal/models"

// Reconciler holds the merged device state. It is not safe for concurrent use;
// Core serializes access.
type Reconciler struct {
	state models.DeviceState
}

func NewReconciler(initial models.DeviceState) *Reconciler {
	return &Reconciler{state: initial}
}

// Merge overlays the fields present in u and returns the door and canopy
// values from before the merge.
func (r *Reconciler) Merge(u models.StateUpdate) (prevDoor, prevCanopy string) {
	prevDoor, prevCanopy = r.state.Door, r.state.Canopy

	if u.Flame != nil {
		r.state.Flame = *u.Flame
	}
	if u.Rain != nil {
		r.state.Rain = *u.Rain
	}
	if u.Gas != nil {
		r.state.Gas = *u.Gas
	}
	if u.Door != nil {
		r.state.Door = *u.Door
	}
	if u.Canopy != nil {
		r.state.Canopy = *u.Canopy
	}
	return prevDoor, prevCanopy
}

// Snapshot returns a copy of the current state.
func (r *Reconciler) Snapshot() models.DeviceState {
	return r.state
}
