// Package fixed provides deterministic Clock and RandomSource fakes.
package fixed

import (
	"sync"
	"time"
)

// Clock always reports the same instant until Set or Advance moves it.
type Clock struct {
	mu sync.Mutex
	t  time.Time
}

// NewClock creates a clock stopped at t.
func NewClock(t time.Time) *Clock {
	return &Clock{t: t}
}

// OnWeekday returns a clock stopped at 09:00 UTC on the given weekday of the
// first week of 2024 (Monday 2024-01-01).
func OnWeekday(day time.Weekday) *Clock {
	offset := (int(day) + 6) % 7 // Monday = 0
	return NewClock(time.Date(2024, 1, 1+offset, 9, 0, 0, 0, time.UTC))
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// Set moves the clock to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// Random replays a fixed sequence of values, cycling when exhausted.
// Values are clamped into the requested range.
type Random struct {
	mu     sync.Mutex
	values []int
	next   int
}

// NewRandom creates a source replaying values. With no values it always yields low.
func NewRandom(values ...int) *Random {
	return &Random{values: values}
}

func (r *Random) IntN(low, high int) int {
	if high < low {
		low, high = high, low
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.values) == 0 {
		return low
	}
	v := r.values[r.next%len(r.values)]
	r.next++
	return min(max(v, low), high)
}
