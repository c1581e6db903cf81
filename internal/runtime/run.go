package runtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/waypoint/pkg/domain"
)

// Run executes g from its entry step until a route reaches domain.End.
//
// The State starts from the schema defaults overlaid with initial. Each step
// receives a private copy of the State and its delta is merged only after it
// returns and passes schema validation. On failure the returned error carries
// the last State that was fully merged; use domain.FailedState to read it.
func (e *Engine) Run(ctx context.Context, g *domain.Graph, initial map[string]any, correlationID string, opts RunOptions) (*domain.State, error) {
	if g == nil {
		return nil, errors.New("run: graph is nil")
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	r := &run{
		engine:   e,
		graph:    g,
		opts:     opts,
		started:  e.now(),
		maxSteps: opts.maxSteps(),
	}

	state := domain.NewState(correlationID, g.Name())
	state.Merge(g.Schema().Defaults())
	if err := g.Schema().ValidateDelta(initial); err != nil {
		return r.finish(ctx, state, &domain.StepExecutionError{
			CorrelationID: correlationID,
			State:         state,
			Err:           err,
		})
	}
	state.Merge(initial)

	e.logger.DebugContext(ctx, "run started",
		"correlation_id", correlationID, "graph", g.Name(), "max_steps", r.maxSteps)

	current := g.Entry()
	for {
		if state.Steps >= r.maxSteps {
			return r.finish(ctx, state, &domain.StepLimitExceededError{
				CorrelationID: correlationID,
				Limit:         r.maxSteps,
				Step:          current,
				State:         state,
			})
		}

		next, err := r.execute(ctx, state, current)
		if err != nil {
			return r.finish(ctx, state, err)
		}
		state = next

		target, err := r.resolve(ctx, state, current)
		if err != nil {
			return r.finish(ctx, state, err)
		}
		if target == domain.End {
			return r.finish(ctx, state, nil)
		}
		current = target
	}
}

// run holds the bookkeeping of one Run call.
type run struct {
	engine   *Engine
	graph    *domain.Graph
	opts     RunOptions
	started  time.Time
	maxSteps int
}

func (r *run) execute(ctx context.Context, state *domain.State, name string) (*domain.State, error) {
	e := r.engine
	st, ok := r.graph.Step(name)
	if !ok {
		// Unreachable for validated graphs.
		return nil, &domain.StepExecutionError{
			CorrelationID: state.CorrelationID,
			Step:          name,
			State:         state,
			Err:           fmt.Errorf("step %q is not declared", name),
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, r.interrupted(err, name, state)
	}

	e.emitStepEnter(ctx, state, name)
	began := e.now()

	input := state.Clone()
	delta, err := await(ctx, func() (domain.Delta, error) {
		return st.Fn(ctx, input)
	})
	if err == nil && ctx.Err() != nil {
		// The step finished but the budget was already spent: discard its delta.
		err = ctx.Err()
	}
	if err == nil {
		if verr := r.graph.Schema().ValidateDelta(delta); verr != nil {
			err = fmt.Errorf("invalid delta: %w", verr)
		}
	}

	elapsed := e.now().Sub(began)
	if err != nil {
		e.emitStepLeave(ctx, state, name, nil, elapsed, err)
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, r.interrupted(ctxErr, name, state)
		}
		e.logger.WarnContext(ctx, "step failed",
			"correlation_id", state.CorrelationID, "graph", state.Graph, "step", name, "error", err)
		return nil, &domain.StepExecutionError{
			CorrelationID: state.CorrelationID,
			Step:          name,
			State:         state,
			Err:           err,
		}
	}

	next := state.Clone()
	next.Merge(delta)
	next.CurrentStep = name
	next.History = append(next.History, name)
	next.Steps++

	e.emitStepLeave(ctx, next, name, delta, elapsed, nil)
	e.logger.DebugContext(ctx, "step executed",
		"correlation_id", next.CorrelationID, "graph", next.Graph, "step", name,
		"keys", len(delta), "duration", elapsed)
	return next, nil
}

// resolve looks up where the run goes after from. Routers are invoked exactly
// once and their outcome is looked up once in the static routes.
func (r *run) resolve(ctx context.Context, state *domain.State, from string) (string, error) {
	e := r.engine
	edge, ok := r.graph.Edge(from)
	if !ok {
		return "", &domain.RoutingError{
			CorrelationID: state.CorrelationID,
			Step:          from,
			State:         state,
			Err:           fmt.Errorf("step %q has no outgoing edge", from),
		}
	}

	if !edge.Conditional() {
		e.emitRoute(ctx, state, from, "", "", edge.To)
		return edge.To, nil
	}

	input := state.Clone()
	outcome, err := await(ctx, func() (string, error) {
		return edge.Router.Fn(ctx, input)
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return "", r.interrupted(ctxErr, from, state)
		}
		return "", &domain.RoutingError{
			CorrelationID: state.CorrelationID,
			Step:          from,
			Router:        edge.Router.Name,
			State:         state,
			Err:           err,
		}
	}

	target, ok := edge.Routes[outcome]
	if !ok {
		e.logger.WarnContext(ctx, "router returned undeclared outcome",
			"correlation_id", state.CorrelationID, "graph", state.Graph, "step", from,
			"router", edge.Router.Name, "outcome", outcome)
		return "", &domain.RoutingError{
			CorrelationID: state.CorrelationID,
			Step:          from,
			Router:        edge.Router.Name,
			Outcome:       outcome,
			State:         state,
		}
	}

	e.emitRoute(ctx, state, from, edge.Router.Name, outcome, target)
	return target, nil
}

// interrupted maps a context failure to the run error the caller sees.
func (r *run) interrupted(cause error, step string, state *domain.State) error {
	if errors.Is(cause, context.DeadlineExceeded) {
		return &domain.TimeoutError{
			CorrelationID: state.CorrelationID,
			Step:          step,
			Timeout:       r.opts.Timeout,
			State:         state,
		}
	}
	return &domain.StepExecutionError{
		CorrelationID: state.CorrelationID,
		Step:          step,
		State:         state,
		Err:           cause,
	}
}

func (r *run) finish(ctx context.Context, state *domain.State, err error) (*domain.State, error) {
	e := r.engine
	duration := e.now().Sub(r.started)

	if err != nil {
		state.Status = domain.StatusFailed
		e.emitRunEnd(ctx, state, duration, err)
		e.logger.InfoContext(ctx, "run failed",
			"correlation_id", state.CorrelationID, "graph", state.Graph,
			"step", state.CurrentStep, "steps", state.Steps, "error", err)
		return nil, err
	}

	state.Status = domain.StatusCompleted
	e.emitRunEnd(ctx, state, duration, nil)
	e.logger.InfoContext(ctx, "run completed",
		"correlation_id", state.CorrelationID, "graph", state.Graph,
		"steps", state.Steps, "duration", duration)
	return state, nil
}

// await runs fn on its own goroutine and waits for either its result or the
// end of ctx. An abandoned fn finishes into a buffered channel nobody reads.
// Panics become errors.
func await[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)

	go func() {
		var res result
		defer func() {
			if p := recover(); p != nil {
				res = result{err: fmt.Errorf("panic: %v", p)}
			}
			done <- res
		}()
		res.value, res.err = fn()
	}()

	select {
	case res := <-done:
		return res.value, res.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
