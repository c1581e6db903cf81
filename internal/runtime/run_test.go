package runtime_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/waypoint/internal/runtime"
	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/aretw0/waypoint/pkg/flow"
	"github.com/aretw0/waypoint/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func set(delta domain.Delta) domain.StepFunc {
	return func(context.Context, *domain.State) (domain.Delta, error) {
		return delta, nil
	}
}

func always(outcome string, outcomes ...string) domain.Router {
	return flow.Router("always_"+outcome, func(context.Context, *domain.State) (string, error) {
		return outcome, nil
	}, outcomes...)
}

func mustBuild(t *testing.T, b *flow.Builder) *domain.Graph {
	t.Helper()
	g, err := b.Build()
	require.NoError(t, err)
	return g
}

func TestEngine_RunLinearMergesDeltas(t *testing.T) {
	g := mustBuild(t, flow.New("linear").
		Step("one", set(domain.Delta{"a": 1})).
		Step("two", set(domain.Delta{"b": 2})).
		Step("three", set(domain.Delta{"a": 3})).
		Entry("one").
		Edge("one", "two").
		Edge("two", "three").
		Edge("three", flow.End))

	state, err := runtime.NewEngine().Run(context.Background(), g, map[string]any{"a": 0, "keep": "x"}, "run-1", runtime.RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"a": 3, "b": 2, "keep": "x"}, state.Values)
	assert.Equal(t, []string{"one", "two", "three"}, state.History)
	assert.Equal(t, 3, state.Steps)
	assert.Equal(t, "three", state.CurrentStep)
	assert.Equal(t, domain.StatusCompleted, state.Status)
	assert.Equal(t, "run-1", state.CorrelationID)
	assert.Equal(t, "linear", state.Graph)
}

// Property: the final State is the initial values overwritten, in execution
// order, by every visited step's delta.
func TestEngine_FinalStateIsOrderedMerge(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	keys := []string{"k0", "k1", "k2", "k3", "k4"}

	for iter := 0; iter < 50; iter++ {
		n := 1 + rng.IntN(6)
		initial := map[string]any{}
		for _, k := range keys {
			if rng.IntN(2) == 0 {
				initial[k] = rng.IntN(100)
			}
		}

		expected := map[string]any{}
		for k, v := range initial {
			expected[k] = v
		}

		b := flow.New(fmt.Sprintf("chain-%d", iter)).Entry("s0")
		for i := 0; i < n; i++ {
			delta := domain.Delta{}
			for _, k := range keys {
				if rng.IntN(3) == 0 {
					delta[k] = fmt.Sprintf("%d-%s", i, k)
				}
			}
			for k, v := range delta {
				expected[k] = v
			}
			name := fmt.Sprintf("s%d", i)
			b.Step(name, set(delta))
			if i+1 < n {
				b.Edge(name, fmt.Sprintf("s%d", i+1))
			} else {
				b.Edge(name, flow.End)
			}
		}

		state, err := runtime.NewEngine().Run(context.Background(), mustBuild(t, b), initial, "prop", runtime.RunOptions{})
		require.NoError(t, err)
		assert.Equal(t, expected, state.Values, "iteration %d", iter)
		assert.Equal(t, n, state.Steps)
	}
}

func TestEngine_StepLimitIsExact(t *testing.T) {
	for _, limit := range []int{1, 2, 5, 25} {
		t.Run(fmt.Sprint(limit), func(t *testing.T) {
			var executions atomic.Int32
			g := mustBuild(t, flow.New("spin").
				Step("spin", func(context.Context, *domain.State) (domain.Delta, error) {
					executions.Add(1)
					return domain.Delta{"n": int(executions.Load())}, nil
				}).
				Entry("spin").
				Branch("spin", always("again", "again", "done"), flow.Routes{"again": "spin", "done": flow.End}))

			opts := runtime.RunOptions{MaxSteps: limit}
			if limit == runtime.DefaultMaxSteps {
				opts.MaxSteps = 0
			}
			_, err := runtime.NewEngine().Run(context.Background(), g, nil, "loop", opts)

			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrStepLimitExceeded)
			assert.EqualValues(t, limit, executions.Load())

			var limitErr *domain.StepLimitExceededError
			require.ErrorAs(t, err, &limitErr)
			assert.Equal(t, limit, limitErr.Limit)
			assert.Equal(t, "spin", limitErr.Step)
			assert.Equal(t, limit, limitErr.State.Steps)
			assert.Equal(t, domain.StatusFailed, limitErr.State.Status)
		})
	}
}

func TestEngine_StepLimitAllowsExactlyMaxSteps(t *testing.T) {
	g := mustBuild(t, flow.New("three").
		Step("a", set(nil)).
		Step("b", set(nil)).
		Step("c", set(nil)).
		Entry("a").
		Edge("a", "b").
		Edge("b", "c").
		Edge("c", flow.End))

	state, err := runtime.NewEngine().Run(context.Background(), g, nil, "ok", runtime.RunOptions{MaxSteps: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, state.Steps)

	_, err = runtime.NewEngine().Run(context.Background(), g, nil, "short", runtime.RunOptions{MaxSteps: 2})
	assert.ErrorIs(t, err, domain.ErrStepLimitExceeded)
}

func TestEngine_RoutingError(t *testing.T) {
	rogue := flow.Router("rogue", func(context.Context, *domain.State) (string, error) {
		return "Z", nil
	}, "A", "B")

	g := mustBuild(t, flow.New("rogue").
		Step("start", set(domain.Delta{"seen": true})).
		Entry("start").
		Branch("start", rogue, flow.Routes{"A": flow.End, "B": flow.End}))

	_, err := runtime.NewEngine().Run(context.Background(), g, nil, "run-r", runtime.RunOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRouting)

	var routing *domain.RoutingError
	require.ErrorAs(t, err, &routing)
	assert.Equal(t, "Z", routing.Outcome)
	assert.Equal(t, "start", routing.Step)
	assert.Equal(t, "rogue", routing.Router)
	assert.Equal(t, "run-r", routing.CorrelationID)
	assert.Equal(t, true, routing.State.Values["seen"])
}

func TestEngine_RouterFailure(t *testing.T) {
	cause := errors.New("lookup down")
	broken := flow.Router("broken", func(context.Context, *domain.State) (string, error) {
		return "", cause
	}, "A")

	g := mustBuild(t, flow.New("broken").
		Step("start", set(nil)).
		Entry("start").
		Branch("start", broken, flow.Routes{"A": flow.End}))

	_, err := runtime.NewEngine().Run(context.Background(), g, nil, "run", runtime.RunOptions{})
	assert.ErrorIs(t, err, domain.ErrRouting)
	assert.ErrorIs(t, err, cause)
}

func TestEngine_StepErrorKeepsPreviousState(t *testing.T) {
	cause := errors.New("smtp unreachable")
	g := mustBuild(t, flow.New("failing").
		Step("first", set(domain.Delta{"a": 1})).
		Step("second", func(context.Context, *domain.State) (domain.Delta, error) {
			return domain.Delta{"a": 99}, cause
		}).
		Entry("first").
		Edge("first", "second").
		Edge("second", flow.End))

	state, err := runtime.NewEngine().Run(context.Background(), g, nil, "run-e", runtime.RunOptions{})
	assert.Nil(t, state)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStepExecution)
	assert.ErrorIs(t, err, cause)

	var stepErr *domain.StepExecutionError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "second", stepErr.Step)
	assert.Equal(t, "run-e", stepErr.CorrelationID)

	last, ok := domain.FailedState(err)
	require.True(t, ok)
	assert.Equal(t, 1, last.Values["a"])
	assert.Equal(t, []string{"first"}, last.History)
	assert.Equal(t, domain.StatusFailed, last.Status)
}

func TestEngine_StepPanicIsRecovered(t *testing.T) {
	g := mustBuild(t, flow.New("panicky").
		Step("boom", func(context.Context, *domain.State) (domain.Delta, error) {
			panic("nil map")
		}).
		Entry("boom").
		Edge("boom", flow.End))

	_, err := runtime.NewEngine().Run(context.Background(), g, nil, "p", runtime.RunOptions{})
	assert.ErrorIs(t, err, domain.ErrStepExecution)
	assert.Contains(t, err.Error(), "panic: nil map")
}

func TestEngine_TimeoutDiscardsInFlightDelta(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	g := mustBuild(t, flow.New("slow").
		Step("fast", set(domain.Delta{"fast": true})).
		Step("slow", func(context.Context, *domain.State) (domain.Delta, error) {
			<-release // ignores ctx on purpose
			return domain.Delta{"slow": true}, nil
		}).
		Entry("fast").
		Edge("fast", "slow").
		Edge("slow", flow.End))

	began := time.Now()
	_, err := runtime.NewEngine().Run(context.Background(), g, nil, "t", runtime.RunOptions{Timeout: 30 * time.Millisecond})
	assert.Less(t, time.Since(began), 2*time.Second)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTimeout)

	var timeout *domain.TimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, "slow", timeout.Step)
	assert.Equal(t, 30*time.Millisecond, timeout.Timeout)
	assert.Equal(t, map[string]any{"fast": true}, timeout.State.Values)
}

func TestEngine_CancellationIsStepFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	g := mustBuild(t, flow.New("cancel").
		Step("wait", func(ctx context.Context, _ *domain.State) (domain.Delta, error) {
			cancel()
			<-ctx.Done()
			return nil, ctx.Err()
		}).
		Entry("wait").
		Edge("wait", flow.End))

	_, err := runtime.NewEngine().Run(ctx, g, nil, "c", runtime.RunOptions{})
	assert.ErrorIs(t, err, domain.ErrStepExecution)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, domain.ErrTimeout)
}

func TestEngine_SchemaEnforcement(t *testing.T) {
	s := schema.MustNew(
		schema.Field{Name: "count", Type: schema.Int(), Default: 0},
		schema.Field{Name: "label", Type: schema.String()},
	)

	t.Run("defaults seeded and typed deltas merged", func(t *testing.T) {
		g := mustBuild(t, flow.New("typed").Schema(s).
			Step("label", set(domain.Delta{"label": "ok"})).
			Entry("label").
			Edge("label", flow.End))

		state, err := runtime.NewEngine().Run(context.Background(), g, nil, "s", runtime.RunOptions{})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"count": 0, "label": "ok"}, state.Values)
	})

	t.Run("unknown delta key rejected", func(t *testing.T) {
		g := mustBuild(t, flow.New("typed").Schema(s).
			Step("stray", set(domain.Delta{"colour": "red"})).
			Entry("stray").
			Edge("stray", flow.End))

		_, err := runtime.NewEngine().Run(context.Background(), g, nil, "s", runtime.RunOptions{})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrStepExecution)
		assert.Contains(t, err.Error(), "not declared in schema")

		last, _ := domain.FailedState(err)
		assert.NotContains(t, last.Values, "colour")
	})

	t.Run("invalid initial state", func(t *testing.T) {
		g := mustBuild(t, flow.New("typed").Schema(s).
			Step("noop", set(nil)).
			Entry("noop").
			Edge("noop", flow.End))

		_, err := runtime.NewEngine().Run(context.Background(), g, map[string]any{"count": "many"}, "s", runtime.RunOptions{})
		var stepErr *domain.StepExecutionError
		require.ErrorAs(t, err, &stepErr)
		assert.Empty(t, stepErr.Step)
		assert.Contains(t, err.Error(), "invalid initial state")
	})
}

func TestEngine_StepsCannotMutateEngineState(t *testing.T) {
	g := mustBuild(t, flow.New("sneaky").
		Step("sneaky", func(_ context.Context, s *domain.State) (domain.Delta, error) {
			s.Values["smuggled"] = true
			s.History = append(s.History, "fake")
			return domain.Delta{"honest": true}, nil
		}).
		Entry("sneaky").
		Edge("sneaky", flow.End))

	state, err := runtime.NewEngine().Run(context.Background(), g, nil, "x", runtime.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"honest": true}, state.Values)
	assert.Equal(t, []string{"sneaky"}, state.History)
}

func TestEngine_FailedStepCannotLeakNestedChanges(t *testing.T) {
	g := mustBuild(t, flow.New("nested").
		Step("tamper", func(_ context.Context, s *domain.State) (domain.Delta, error) {
			tags := s.Values["tags"].([]string)
			tags[0] = "corrupted"
			s.Values["meta"].(map[string]any)["owner"] = "corrupted"
			return nil, errors.New("boom")
		}).
		Entry("tamper").
		Edge("tamper", flow.End))

	initial := map[string]any{
		"tags": []string{"vip"},
		"meta": map[string]any{"owner": "ops"},
	}
	_, err := runtime.NewEngine().Run(context.Background(), g, initial, "n", runtime.RunOptions{})
	require.ErrorIs(t, err, domain.ErrStepExecution)

	last, ok := domain.FailedState(err)
	require.True(t, ok)
	assert.Equal(t, []string{"vip"}, last.Values["tags"])
	assert.Equal(t, map[string]any{"owner": "ops"}, last.Values["meta"])
	assert.Equal(t, []string{"vip"}, initial["tags"], "the caller's initial values are untouched")
	assert.Equal(t, map[string]any{"owner": "ops"}, initial["meta"])
}

func TestEngine_SchemaDefaultsAreCopiedPerRun(t *testing.T) {
	s := schema.MustNew(schema.Field{Name: "tags", Type: schema.Slice(schema.String()), Default: []string{"new"}})
	g := mustBuild(t, flow.New("defaults").Schema(s).
		Step("tag", func(_ context.Context, s *domain.State) (domain.Delta, error) {
			tags := s.Values["tags"].([]string)
			tags[0] = "seen"
			return domain.Delta{"tags": tags}, nil
		}).
		Entry("tag").
		Edge("tag", flow.End))

	eng := runtime.NewEngine()
	for i := range 2 {
		state, err := eng.Run(context.Background(), g, nil, fmt.Sprintf("d-%d", i), runtime.RunOptions{})
		require.NoError(t, err)
		assert.Equal(t, []string{"seen"}, state.Values["tags"])
	}
	assert.Equal(t, map[string]any{"tags": []string{"new"}}, s.Defaults())
}

func TestEngine_LifecycleHooks(t *testing.T) {
	var (
		mu     sync.Mutex
		events []string
	)
	record := func(s string) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, s)
	}

	hooks := domain.LifecycleHooks{
		OnStepEnter: func(_ context.Context, e *domain.StepEvent) { record("enter:" + e.Step) },
		OnStepLeave: func(_ context.Context, e *domain.StepEvent) { record("leave:" + e.Step) },
		OnRoute: func(_ context.Context, e *domain.RouteEvent) {
			record(fmt.Sprintf("route:%s-%s->%s", e.From, e.Outcome, e.To))
		},
		OnRunEnd: func(_ context.Context, e *domain.RunEvent) {
			record(fmt.Sprintf("end:%s:%d", e.Status, e.Steps))
		},
	}

	g := mustBuild(t, flow.New("hooked").
		Step("a", set(nil)).
		Step("b", set(nil)).
		Entry("a").
		Branch("a", always("go", "go", "stop"), flow.Routes{"go": "b", "stop": flow.End}).
		Edge("b", flow.End))

	_, err := runtime.NewEngine(runtime.WithLifecycleHooks(hooks)).Run(context.Background(), g, nil, "h", runtime.RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"enter:a", "leave:a", "route:a-go->b",
		"enter:b", "leave:b", "route:b-->__end__",
		"end:completed:2",
	}, events)
}

func TestEngine_ConcurrentRunsAreIndependent(t *testing.T) {
	g := mustBuild(t, flow.New("double").
		Step("double", func(_ context.Context, s *domain.State) (domain.Delta, error) {
			n, _ := s.Int("n")
			time.Sleep(time.Millisecond)
			return domain.Delta{"n": n * 2}, nil
		}).
		Entry("double").
		Branch("double", flow.Predicate("big", func(s *domain.State) bool {
			n, _ := s.Int("n")
			return n >= 100
		}, "done", "again"), flow.Routes{"done": flow.End, "again": "double"}))

	engine := runtime.NewEngine()
	var wg sync.WaitGroup
	results := make([]int, 40)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			state, err := engine.Run(context.Background(), g, map[string]any{"n": i + 1}, fmt.Sprintf("run-%d", i), runtime.RunOptions{})
			if assert.NoError(t, err) {
				results[i], _ = state.Int("n")
			}
		}(i)
	}
	wg.Wait()

	for i, got := range results {
		want := i + 1
		for {
			want *= 2
			if want >= 100 {
				break
			}
		}
		assert.Equal(t, want, got, "run-%d", i)
	}
}

func TestEngine_IdenticalBuildsBehaveIdentically(t *testing.T) {
	build := func() *domain.Graph {
		return mustBuild(t, flow.New("same").
			Step("start", set(domain.Delta{"v": 1})).
			Step("left", set(domain.Delta{"side": "left"})).
			Step("right", set(domain.Delta{"side": "right"})).
			Entry("start").
			Branch("start", flow.Predicate("has_flag", func(s *domain.State) bool { return s.Bool("flag") }, "l", "r"),
				flow.Routes{"l": "left", "r": "right"}).
			Edge("left", flow.End).
			Edge("right", flow.End))
	}

	g1, g2 := build(), build()
	for _, initial := range []map[string]any{{"flag": true}, {"flag": false}, {}} {
		s1, err1 := runtime.NewEngine().Run(context.Background(), g1, initial, "a", runtime.RunOptions{})
		s2, err2 := runtime.NewEngine().Run(context.Background(), g2, initial, "a", runtime.RunOptions{})
		require.NoError(t, err1)
		require.NoError(t, err2)
		assert.Equal(t, s1.Values, s2.Values)
		assert.Equal(t, s1.History, s2.History)
	}
}
