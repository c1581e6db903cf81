package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/waypoint/pkg/domain"
)

func TestRegistry_Steps(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterStep("double", func(_ context.Context, s *domain.State) (domain.Delta, error) {
		n, _ := s.Int("n")
		return domain.Delta{"n": n * 2}, nil
	})
	reg.RegisterStep("noop", func(context.Context, *domain.State) (domain.Delta, error) {
		return nil, nil
	})

	assert.Equal(t, []string{"double", "noop"}, reg.Steps())

	state := domain.NewState("r1", "g")
	state.Merge(domain.Delta{"n": 21})
	delta, err := reg.Execute(context.Background(), "double", state)
	require.NoError(t, err)
	assert.Equal(t, domain.Delta{"n": 42}, delta)
	assert.Equal(t, 21, state.Values["n"], "execute must not touch the caller's state")
}

func TestRegistry_ExecuteNotFound(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Execute(context.Background(), "missing_step", domain.NewState("r1", "g"))
	assert.EqualError(t, err, "step not found: missing_step")
}

func TestRegistry_Routers(t *testing.T) {
	reg := NewRegistry()
	outcomes := []string{"yes", "no"}
	reg.RegisterRouter(domain.Router{
		Name:     "coin",
		Outcomes: outcomes,
		Fn: func(context.Context, *domain.State) (string, error) {
			return "yes", nil
		},
	})
	outcomes[0] = "mutated"

	r, ok := reg.Router("coin")
	require.True(t, ok)
	assert.Equal(t, []string{"yes", "no"}, r.Outcomes)

	r.Outcomes[1] = "mutated"
	again, _ := reg.Router("coin")
	assert.Equal(t, []string{"yes", "no"}, again.Outcomes)

	_, ok = reg.Router("missing")
	assert.False(t, ok)
	assert.Equal(t, []string{"coin"}, reg.Routers())
}

func TestRegistry_Overwrite(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterStep("s", func(context.Context, *domain.State) (domain.Delta, error) {
		return domain.Delta{"v": 1}, nil
	})
	reg.RegisterStep("s", func(context.Context, *domain.State) (domain.Delta, error) {
		return domain.Delta{"v": 2}, nil
	})

	delta, err := reg.Execute(context.Background(), "s", domain.NewState("r", "g"))
	require.NoError(t, err)
	assert.Equal(t, 2, delta["v"])
}
