package waypoint

import (
	"context"

	"github.com/aretw0/waypoint/pkg/domain"
	"golang.org/x/sync/errgroup"
)

// RunRequest is one run of a batch.
type RunRequest struct {
	CorrelationID string
	Initial       map[string]any
	Options       []RunOption
}

// RunResult is the outcome of one run of a batch, in request order.
type RunResult struct {
	CorrelationID string
	State         *domain.State
	Err           error
}

// RunBatch executes independent runs of g with at most parallelism in flight
// (no limit when parallelism <= 0). A failed run does not stop the others;
// its error is reported in its RunResult. The returned error is only set when
// ctx ends before every run was started; runs already in flight are waited
// for before RunBatch returns.
func (e *Engine) RunBatch(ctx context.Context, g *domain.Graph, reqs []RunRequest, parallelism int) ([]RunResult, error) {
	results := make([]RunResult, len(reqs))

	group, gctx := errgroup.WithContext(ctx)
	if parallelism > 0 {
		group.SetLimit(parallelism)
	}

	var stopped error
	for i, req := range reqs {
		if err := gctx.Err(); err != nil {
			stopped = err
			break
		}
		group.Go(func() error {
			state, err := e.Run(gctx, g, req.Initial, req.CorrelationID, req.Options...)
			id := req.CorrelationID
			if state != nil {
				id = state.CorrelationID
			} else if last, ok := domain.FailedState(err); ok {
				id = last.CorrelationID
			}
			results[i] = RunResult{CorrelationID: id, State: state, Err: err}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return results, err
	}
	if stopped != nil {
		return results, ctx.Err()
	}
	return results, nil
}
