package runtime

import (
	"context"
	"time"

	"github.com/aretw0/waypoint/pkg/domain"
)

func (e *Engine) base(state *domain.State, t domain.EventType) domain.EventBase {
	return domain.EventBase{
		Timestamp:     e.now(),
		Type:          t,
		CorrelationID: state.CorrelationID,
		Graph:         state.Graph,
	}
}

func (e *Engine) emitStepEnter(ctx context.Context, state *domain.State, step string) {
	if e.hooks.OnStepEnter == nil {
		return
	}
	e.hooks.OnStepEnter(ctx, &domain.StepEvent{
		EventBase: e.base(state, domain.EventStepEnter),
		Step:      step,
	})
}

func (e *Engine) emitStepLeave(ctx context.Context, state *domain.State, step string, delta domain.Delta, d time.Duration, err error) {
	if e.hooks.OnStepLeave == nil {
		return
	}
	e.hooks.OnStepLeave(ctx, &domain.StepEvent{
		EventBase: e.base(state, domain.EventStepLeave),
		Step:      step,
		Delta:     delta,
		Duration:  d,
		Err:       err,
	})
}

func (e *Engine) emitRoute(ctx context.Context, state *domain.State, from, router, outcome, to string) {
	if e.hooks.OnRoute == nil {
		return
	}
	e.hooks.OnRoute(ctx, &domain.RouteEvent{
		EventBase: e.base(state, domain.EventRoute),
		From:      from,
		Router:    router,
		Outcome:   outcome,
		To:        to,
	})
}

func (e *Engine) emitRunEnd(ctx context.Context, state *domain.State, d time.Duration, err error) {
	if e.hooks.OnRunEnd == nil {
		return
	}
	e.hooks.OnRunEnd(ctx, &domain.RunEvent{
		EventBase: e.base(state, domain.EventRunEnd),
		Status:    state.Status,
		Steps:     state.Steps,
		Duration:  d,
		Err:       err,
	})
}
