// Package determinism keeps evaluation replayable: identical inputs must
// yield identical outputs, so any wall-clock reading flows through an
// injected clock rather than an ambient one.
package determinism

import "time"

// Clock supplies timestamps for truth decisions. Production code passes
// SystemClock; tests pass a fixed clock so decision records are
// byte-identical across replays.
type Clock func() time.Time

// SystemClock returns the current UTC time.
func SystemClock() time.Time {
	return time.Now().UTC()
}

// FixedClock returns a clock frozen at the given instant.
func FixedClock(at time.Time) Clock {
	return func() time.Time { return at }
}
