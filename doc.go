/*
Package waypoint runs conditional state-machine workflows.

A workflow is a directed graph of named steps sharing one State. Each step
reads the State and returns a Delta; the engine merges the Delta and follows
the step's single outgoing edge, which is either fixed or chosen by a router
from a set of outcomes declared when the graph is built. A run ends when an
edge reaches the terminal marker.

# Concept

Graphs are built once with the flow package and validated up front: every
router outcome must lead to a declared step or to the terminal marker, every
step must be reachable and every step must have exactly one outgoing edge.
Once built, a graph is immutable and can serve any number of concurrent runs.

Runs are bounded by a step budget (25 by default) and an optional wall-clock
timeout. Failures surface as typed errors that carry the correlation id, the
step and the last fully merged State:

  - ConfigurationError: the graph is invalid (returned by Build).
  - RoutingError: a router returned an outcome it never declared.
  - StepExecutionError: a step failed, panicked or returned an invalid Delta.
  - StepLimitExceededError: the step budget ran out, usually a routing cycle.
  - TimeoutError: the wall-clock budget ran out.

# Usage

	g, err := flow.New("greeting").
		Step("hello", func(ctx context.Context, s *domain.State) (domain.Delta, error) {
			return domain.Delta{"message": "hello " + s.String("name")}, nil
		}).
		Entry("hello").
		Edge("hello", flow.End).
		Build()
	if err != nil {
		log.Fatal(err)
	}

	eng := waypoint.New(waypoint.WithLogger(logger))
	state, err := eng.Run(ctx, g, map[string]any{"name": "John"}, "run-1",
		waypoint.Timeout(5*time.Second))
	if err != nil {
		if last, ok := domain.FailedState(err); ok {
			log.Printf("failed at %s with %v", last.CurrentStep, last.Values)
		}
		log.Fatal(err)
	}
	fmt.Println(state.String("message"))

Successful runs can be checkpointed by correlation id with WithCheckpointStore.
Failed runs never are, so a checkpoint is always a completed State.
*/
package waypoint
