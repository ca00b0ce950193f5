package service

import "time"

// ActionCooldown is how long after a dispatched command a matching transition
// echoed by telemetry is kept out of the log.
const ActionCooldown = 2 * time.Second

// DebounceGuard owns the action clock: the time of the last successful dispatch.
type DebounceGuard struct {
	clock      Clock
	cooldown   time.Duration
	lastAction time.Time
}

func NewDebounceGuard(clock Clock, cooldown time.Duration) *DebounceGuard {
	return &DebounceGuard{clock: clock, cooldown: cooldown}
}

// Allow reports whether a candidate may proceed. Only transitions inside the
// cooldown window (inclusive) are refused.
func (g *DebounceGuard) Allow(isTransition bool) bool {
	if !isTransition || g.lastAction.IsZero() {
		return true
	}
	return g.clock.Now().Sub(g.lastAction) > g.cooldown
}

// Stamp records a dispatch at the current time. The clock never moves backwards.
func (g *DebounceGuard) Stamp() {
	now := g.clock.Now()
	if now.After(g.lastAction) {
		g.lastAction = now
	}
}

// LastAction returns the recorded dispatch time, zero if none.
func (g *DebounceGuard) LastAction() time.Time {
	return g.lastAction
}
