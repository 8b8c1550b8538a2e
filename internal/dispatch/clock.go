package dispatch

import "time"

// Clock supplies the current time so tests can pin the sent_at timestamp.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the wall clock used in production wiring.
func SystemClock() Clock { return systemClock{} }
