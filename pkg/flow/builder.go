package flow

import (
	"context"
	"maps"
	"slices"

	"github.com/aretw0/waypoint/internal/validator"
	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/aretw0/waypoint/pkg/schema"
)

// End is the terminal marker. Route to it to finish a run.
const End = domain.End

// Routes maps router outcomes to step names or End.
type Routes map[string]string

// Builder accumulates a graph definition. It is not safe for concurrent use.
type Builder struct {
	name   string
	entry  string
	schema schema.Schema
	steps  []domain.Step
	edges  []domain.Edge
}

// New creates a builder for a graph with the given name.
func New(name string) *Builder {
	return &Builder{name: name}
}

// Schema sets the State schema. Without one the State is untyped.
func (b *Builder) Schema(s schema.Schema) *Builder {
	b.schema = s
	return b
}

// Step declares a named step.
func (b *Builder) Step(name string, fn domain.StepFunc) *Builder {
	b.steps = append(b.steps, domain.Step{Name: name, Fn: fn})
	return b
}

// Describe attaches a human-readable description to the most recently
// declared step with the given name.
func (b *Builder) Describe(name, description string) *Builder {
	for i := len(b.steps) - 1; i >= 0; i-- {
		if b.steps[i].Name == name {
			b.steps[i].Description = description
			break
		}
	}
	return b
}

// Entry sets the first step of every run.
func (b *Builder) Entry(name string) *Builder {
	b.entry = name
	return b
}

// Edge declares an unconditional transition.
func (b *Builder) Edge(from, to string) *Builder {
	b.edges = append(b.edges, domain.Edge{From: from, To: to})
	return b
}

// Branch declares a conditional transition resolved by r.
func (b *Builder) Branch(from string, r domain.Router, routes Routes) *Builder {
	b.edges = append(b.edges, domain.Edge{
		From:   from,
		Router: &r,
		Routes: maps.Clone(map[string]string(routes)),
	})
	return b
}

// Build validates the definition and assembles an immutable graph.
// The builder may keep being used afterwards; graphs already built are unaffected.
func (b *Builder) Build() (*domain.Graph, error) {
	steps := slices.Clone(b.steps)
	edges := make([]domain.Edge, len(b.edges))
	for i, e := range b.edges {
		if e.Router != nil {
			r := *e.Router
			r.Outcomes = slices.Clone(r.Outcomes)
			e.Router = &r
		}
		edges[i] = e
	}

	if err := validator.ValidateGraph(validator.Definition{
		Name:  b.name,
		Entry: b.entry,
		Steps: steps,
		Edges: edges,
	}); err != nil {
		return nil, err
	}

	return domain.NewGraph(b.name, b.entry, b.schema, steps, edges), nil
}

// Router is a shorthand for declaring a domain.Router.
func Router(name string, fn domain.RouterFunc, outcomes ...string) domain.Router {
	return domain.Router{Name: name, Outcomes: outcomes, Fn: fn}
}

// Predicate builds a two-way router from a boolean test.
func Predicate(name string, test func(*domain.State) bool, yes, no string) domain.Router {
	return Router(name, func(_ context.Context, s *domain.State) (string, error) {
		if test(s) {
			return yes, nil
		}
		return no, nil
	}, yes, no)
}
