// Package system provides the production Clock and RandomSource.
package system

import (
	"math/rand/v2"
	"time"
)

// Clock reads the wall clock.
type Clock struct{}

func (Clock) Now() time.Time { return time.Now() }

// Random draws from the process-wide math/rand/v2 generator.
type Random struct{}

// IntN returns a uniform integer in [low, high]. Reversed bounds are swapped.
func (Random) IntN(low, high int) int {
	if high < low {
		low, high = high, low
	}
	return low + rand.IntN(high-low+1)
}
