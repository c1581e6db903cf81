/*
Package domain contains the core entities of the Waypoint workflow engine.

It defines the graph vocabulary (Steps, Routers, Edges, Graph), the execution
State that steps mutate, and the error taxonomy surfaced by a Run. This package
is kept pure and free of I/O, following Hexagonal Architecture principles.

# Key Entities

  - Step: a named unit of computation, State -> Delta.
  - Router: a function mapping State to an outcome key, with its declared outcomes.
  - Edge: an unconditional or conditional transition out of a step.
  - Graph: the immutable set of steps and edges plus the entry step.
  - State: the runtime snapshot of a run (values, history, status).
  - End: the terminal marker.
*/
package domain
