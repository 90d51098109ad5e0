package service

import "time"

// Clock is the time source for deadline arithmetic. Injected so tests can
// drive the attempt lifecycle without real delays.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func NewSystemClock() Clock { return systemClock{} }

func (systemClock) Now() time.Time { return time.Now() }
