package observability

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/aretw0/waypoint/pkg/domain"
)

// Combine returns hooks that call each of the given hooks in order.
// Nil callbacks are skipped.
func Combine(hooks ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, h := range hooks {
		out.OnStepEnter = chain(out.OnStepEnter, h.OnStepEnter)
		out.OnStepLeave = chain(out.OnStepLeave, h.OnStepLeave)
		out.OnRoute = chain(out.OnRoute, h.OnRoute)
		out.OnRunEnd = chain(out.OnRunEnd, h.OnRunEnd)
	}
	return out
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}

// LoggingHooks writes every lifecycle event to logger at debug level, and
// failed steps and runs at warn.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepEnter: func(ctx context.Context, e *domain.StepEvent) {
			logger.DebugContext(ctx, "step_enter",
				"correlation_id", e.CorrelationID, "graph", e.Graph, "step", e.Step)
		},
		OnStepLeave: func(ctx context.Context, e *domain.StepEvent) {
			if e.Err != nil {
				logger.WarnContext(ctx, "step_leave",
					"correlation_id", e.CorrelationID, "graph", e.Graph, "step", e.Step,
					"duration", e.Duration, "error", e.Err)
				return
			}
			logger.DebugContext(ctx, "step_leave",
				"correlation_id", e.CorrelationID, "graph", e.Graph, "step", e.Step,
				"duration", e.Duration, "keys", len(e.Delta))
		},
		OnRoute: func(ctx context.Context, e *domain.RouteEvent) {
			logger.DebugContext(ctx, "route",
				"correlation_id", e.CorrelationID, "graph", e.Graph,
				"from", e.From, "router", e.Router, "outcome", e.Outcome, "to", e.To)
		},
		OnRunEnd: func(ctx context.Context, e *domain.RunEvent) {
			level := slog.LevelDebug
			if e.Err != nil {
				level = slog.LevelWarn
			}
			logger.Log(ctx, level, "run_end",
				"correlation_id", e.CorrelationID, "graph", e.Graph,
				"status", e.Status, "steps", e.Steps, "duration", e.Duration, "error", e.Err)
		},
	}
}

// Recorder keeps the route trace of the most recent runs in memory.
type Recorder struct {
	mu    sync.Mutex
	limit int
	order []string
	runs  map[string][]domain.RouteEvent
}

// NewRecorder keeps traces for at most limit correlation ids, evicting the
// oldest first. A limit <= 0 means 100.
func NewRecorder(limit int) *Recorder {
	if limit <= 0 {
		limit = 100
	}
	return &Recorder{limit: limit, runs: make(map[string][]domain.RouteEvent)}
}

// Hooks returns hooks that record every routing decision.
func (r *Recorder) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRoute: func(_ context.Context, e *domain.RouteEvent) {
			r.mu.Lock()
			defer r.mu.Unlock()
			if _, ok := r.runs[e.CorrelationID]; !ok {
				r.order = append(r.order, e.CorrelationID)
				if len(r.order) > r.limit {
					delete(r.runs, r.order[0])
					r.order = r.order[1:]
				}
			}
			r.runs[e.CorrelationID] = append(r.runs[e.CorrelationID], *e)
		},
	}
}

// Trace returns the routing decisions of a run in the order they were taken.
func (r *Recorder) Trace(correlationID string) []domain.RouteEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.runs[correlationID])
}
