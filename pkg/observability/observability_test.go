package observability

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/waypoint/internal/logging"
	"github.com/aretw0/waypoint/internal/runtime"
	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/aretw0/waypoint/pkg/flow"
)

func parityGraph(t *testing.T) *domain.Graph {
	t.Helper()
	g, err := flow.New("parity").
		Step("read", func(context.Context, *domain.State) (domain.Delta, error) { return nil, nil }).
		Step("even", func(context.Context, *domain.State) (domain.Delta, error) { return nil, nil }).
		Step("odd", func(context.Context, *domain.State) (domain.Delta, error) {
			return nil, errors.New("odd numbers are rejected")
		}).
		Entry("read").
		Branch("read", flow.Predicate("is_even", func(s *domain.State) bool {
			n, _ := s.Int("n")
			return n%2 == 0
		}, "even", "odd"), flow.Routes{"even": "even", "odd": "odd"}).
		Edge("even", flow.End).
		Edge("odd", flow.End).
		Build()
	require.NoError(t, err)
	return g
}

func TestMetrics_RecordsRuns(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	eng := runtime.NewEngine(runtime.WithLifecycleHooks(m.Hooks()))
	g := parityGraph(t)
	ctx := context.Background()

	_, err = eng.Run(ctx, g, map[string]any{"n": 2}, "a", runtime.RunOptions{})
	require.NoError(t, err)
	_, err = eng.Run(ctx, g, map[string]any{"n": 4}, "b", runtime.RunOptions{})
	require.NoError(t, err)
	_, err = eng.Run(ctx, g, map[string]any{"n": 3}, "c", runtime.RunOptions{})
	require.Error(t, err)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.StepVisits.WithLabelValues("parity", "read")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.StepVisits.WithLabelValues("parity", "even")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StepVisits.WithLabelValues("parity", "odd")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RouteOutcomes.WithLabelValues("parity", "read", "even", "even")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Runs.WithLabelValues("parity", "completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("parity", "failed")))
	assert.Equal(t, 3, testutil.CollectAndCount(m.StepDuration),
		"durations are observed under read/ok, even/ok and odd/error")
}

func TestNewMetrics_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewMetrics(reg)
	require.NoError(t, err)

	_, err = NewMetrics(reg)
	assert.ErrorContains(t, err, "register metrics")

	m, err := NewMetrics(nil)
	require.NoError(t, err)
	assert.NotNil(t, m.Runs)
}

func TestCombine(t *testing.T) {
	var calls []string
	first := domain.LifecycleHooks{
		OnRoute: func(context.Context, *domain.RouteEvent) { calls = append(calls, "first") },
	}
	second := domain.LifecycleHooks{
		OnRoute:  func(context.Context, *domain.RouteEvent) { calls = append(calls, "second") },
		OnRunEnd: func(context.Context, *domain.RunEvent) { calls = append(calls, "end") },
	}

	h := Combine(first, domain.LifecycleHooks{}, second)
	assert.Nil(t, h.OnStepEnter)
	assert.Nil(t, h.OnStepLeave)

	h.OnRoute(context.Background(), &domain.RouteEvent{})
	h.OnRunEnd(context.Background(), &domain.RunEvent{})
	assert.Equal(t, []string{"first", "second", "end"}, calls)
}

func TestLoggingHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWriter(&buf, logging.FormatText, slog.LevelDebug)

	eng := runtime.NewEngine(runtime.WithLifecycleHooks(LoggingHooks(logger)))
	_, err := eng.Run(context.Background(), parityGraph(t), map[string]any{"n": 1}, "logged", runtime.RunOptions{})
	require.Error(t, err)

	out := buf.String()
	assert.Contains(t, out, "msg=step_enter")
	assert.Contains(t, out, "msg=route")
	assert.Contains(t, out, "outcome=odd")
	assert.Contains(t, out, `err="odd numbers are rejected"`)
	assert.Contains(t, out, "level=WARN msg=run_end")
}

func TestRecorder(t *testing.T) {
	rec := NewRecorder(2)
	eng := runtime.NewEngine(runtime.WithLifecycleHooks(rec.Hooks()))
	g := parityGraph(t)

	for _, id := range []string{"one", "two", "three"} {
		_, err := eng.Run(context.Background(), g, map[string]any{"n": 2}, id, runtime.RunOptions{})
		require.NoError(t, err)
	}

	assert.Empty(t, rec.Trace("one"), "oldest run is evicted")

	trace := rec.Trace("three")
	require.Len(t, trace, 2)
	assert.Equal(t, "read", trace[0].From)
	assert.Equal(t, "is_even", trace[0].Router)
	assert.Equal(t, "even", trace[0].Outcome)
	assert.Equal(t, domain.End, trace[1].To)
}
