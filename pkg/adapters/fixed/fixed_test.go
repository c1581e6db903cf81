package fixed_test

import (
	"testing"
	"time"

	"github.com/aretw0/waypoint/pkg/adapters/fixed"
	"github.com/aretw0/waypoint/pkg/ports"
	"github.com/stretchr/testify/assert"
)

var (
	_ ports.Clock        = (*fixed.Clock)(nil)
	_ ports.RandomSource = (*fixed.Random)(nil)
)

func TestOnWeekday(t *testing.T) {
	for day := time.Sunday; day <= time.Saturday; day++ {
		assert.Equal(t, day, fixed.OnWeekday(day).Now().Weekday())
	}
	assert.Equal(t, "Wednesday", fixed.OnWeekday(time.Wednesday).Now().Format("Monday"))
}

func TestClock_Advance(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := fixed.NewClock(start)
	c.Advance(time.Hour)
	assert.Equal(t, start.Add(time.Hour), c.Now())
	c.Set(start)
	assert.Equal(t, start, c.Now())
}

func TestRandom_Replay(t *testing.T) {
	r := fixed.NewRandom(75, 30, 500)
	assert.Equal(t, 75, r.IntN(1, 100))
	assert.Equal(t, 30, r.IntN(1, 100))
	assert.Equal(t, 100, r.IntN(1, 100), "clamped to high")
	assert.Equal(t, 75, r.IntN(1, 100), "cycles")

	assert.Equal(t, 1, fixed.NewRandom().IntN(1, 100))
}
