package domain

import (
	"context"
	"slices"

	"github.com/aretw0/waypoint/pkg/schema"
)

// End is the terminal marker. Routing to End completes the run.
const End = "__end__"

// StepFunc is the contract of a step: read the State, return what changed.
// The engine always blocks on the result; steps that fan out internally must
// join before returning.
type StepFunc func(ctx context.Context, state *State) (Delta, error)

// RouterFunc inspects the State and returns an outcome key.
type RouterFunc func(ctx context.Context, state *State) (string, error)

// Step is a named unit of computation.
type Step struct {
	Name        string
	Description string
	Fn          StepFunc
}

// Router pairs a routing function with the outcomes it may return.
// The outcomes are declared up front so coverage can be checked at build time.
type Router struct {
	Name     string
	Outcomes []string
	Fn       RouterFunc
}

// Edge is the single outgoing transition of a step.
// Unconditional edges set To; conditional edges set Router and Routes.
type Edge struct {
	From string
	To   string

	Router *Router
	// Routes maps each router outcome to a step name or End.
	Routes map[string]string
}

// Conditional reports whether the edge is resolved by a router.
func (e Edge) Conditional() bool { return e.Router != nil }

// Targets returns every step name (or End) the edge can lead to.
func (e Edge) Targets() []string {
	if !e.Conditional() {
		return []string{e.To}
	}
	out := make([]string, 0, len(e.Routes))
	for _, outcome := range e.Router.Outcomes {
		if target, ok := e.Routes[outcome]; ok && !slices.Contains(out, target) {
			out = append(out, target)
		}
	}
	return out
}

// Graph is an immutable workflow definition.
// Build one with the flow package, which validates it; NewGraph only assembles.
type Graph struct {
	name   string
	entry  string
	schema schema.Schema
	order  []string
	steps  map[string]Step
	edges  map[string]Edge
}

// NewGraph assembles a graph from already validated parts.
func NewGraph(name, entry string, s schema.Schema, steps []Step, edges []Edge) *Graph {
	g := &Graph{
		name:   name,
		entry:  entry,
		schema: s,
		order:  make([]string, 0, len(steps)),
		steps:  make(map[string]Step, len(steps)),
		edges:  make(map[string]Edge, len(edges)),
	}
	for _, st := range steps {
		g.order = append(g.order, st.Name)
		g.steps[st.Name] = st
	}
	for _, e := range edges {
		routes := make(map[string]string, len(e.Routes))
		for k, v := range e.Routes {
			routes[k] = v
		}
		e.Routes = routes
		g.edges[e.From] = e
	}
	return g
}

func (g *Graph) Name() string { return g.name }

// Entry returns the name of the first step of every run.
func (g *Graph) Entry() string { return g.entry }

func (g *Graph) Schema() schema.Schema { return g.schema }

// Step looks up a step by name.
func (g *Graph) Step(name string) (Step, bool) {
	st, ok := g.steps[name]
	return st, ok
}

// Edge returns the outgoing edge of a step.
func (g *Graph) Edge(from string) (Edge, bool) {
	e, ok := g.edges[from]
	return e, ok
}

// Steps returns the steps in declaration order.
func (g *Graph) Steps() []Step {
	out := make([]Step, 0, len(g.order))
	for _, name := range g.order {
		out = append(out, g.steps[name])
	}
	return out
}

// Edges returns the edges ordered by their source step's declaration order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, len(g.edges))
	for _, name := range g.order {
		if e, ok := g.edges[name]; ok {
			out = append(out, e)
		}
	}
	return out
}
