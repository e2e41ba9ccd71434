// Package clock supplies an injectable notion of time, used in place of
// raw calls to time.Now/time.After so that magazine aging and reclaim
// scheduling can be driven deterministically from tests.
package clock

import "time"

// Clock is satisfied by RealClock and SimulatedClock.
type Clock interface {
	// Now returns the current time according to the clock.
	Now() time.Time

	// After returns a channel that receives the time once the given
	// duration has elapsed according to the clock.
	After(d time.Duration) <-chan time.Time
}
