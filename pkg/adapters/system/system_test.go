package system_test

import (
	"testing"
	"time"

	"github.com/aretw0/waypoint/pkg/adapters/system"
	"github.com/aretw0/waypoint/pkg/ports"
	"github.com/stretchr/testify/assert"
)

var (
	_ ports.Clock        = system.Clock{}
	_ ports.RandomSource = system.Random{}
)

func TestRandom_Bounds(t *testing.T) {
	r := system.Random{}
	for i := 0; i < 1000; i++ {
		n := r.IntN(1, 100)
		assert.GreaterOrEqual(t, n, 1)
		assert.LessOrEqual(t, n, 100)
	}
	assert.Equal(t, 7, r.IntN(7, 7))
	n := r.IntN(10, 5)
	assert.True(t, n >= 5 && n <= 10)
}

func TestClock_Now(t *testing.T) {
	assert.WithinDuration(t, time.Now(), system.Clock{}.Now(), time.Second)
}
