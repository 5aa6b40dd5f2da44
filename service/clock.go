package service

import (
	"time"
)

// Clock supplies the current instant. Injected everywhere deadlines are
// compared so tests can cross them without real sleeps.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// NewSystemClock returns a Clock backed by time.Now
func NewSystemClock() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}
