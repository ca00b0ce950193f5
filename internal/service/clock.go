package service

import "time"

// Clock supplies the current time. time.Now carries a monotonic reading, so
// durations between two Now calls are immune to wall-clock jumps.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the production clock.
var SystemClock Clock = systemClock{}
