package workflows

import (
	"fmt"
	"slices"
	"sync"

	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/aretw0/waypoint/pkg/registry"
)

// BuildFunc assembles a workflow graph from its collaborators.
type BuildFunc func(Collaborators) (*domain.Graph, error)

// Catalog holds named workflow builders for the CLI, HTTP and MCP surfaces.
type Catalog struct {
	mu       sync.RWMutex
	builders map[string]BuildFunc
}

// NewCatalog creates a catalog holding the demo workflows.
func NewCatalog() *Catalog {
	c := &Catalog{builders: make(map[string]BuildFunc)}
	c.Register(WeekdayName, Weekday)
	c.Register(OrderName, Order)
	c.Register(WeatherName, Weather)
	return c
}

// Register adds or replaces a builder.
func (c *Catalog) Register(name string, build BuildFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.builders[name] = build
}

// Names lists the registered workflows in lexical order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.builders))
	for name := range c.builders {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Build resolves and builds one workflow.
func (c *Catalog) Build(name string, deps Collaborators) (*domain.Graph, error) {
	c.mu.RLock()
	build, ok := c.builders[name]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownWorkflow, name)
	}
	return build(deps)
}

// Steps builds every workflow and returns its steps, keyed as
// "<workflow>.<step>".
func (c *Catalog) Steps(deps Collaborators) (map[string]domain.StepFunc, error) {
	out := make(map[string]domain.StepFunc)
	err := c.each(deps, func(g *domain.Graph) {
		for _, st := range g.Steps() {
			out[g.Name()+"."+st.Name] = st.Fn
		}
	})
	return out, err
}

// Routers builds every workflow and returns its routers, keyed and named as
// "<workflow>.<router>".
func (c *Catalog) Routers(deps Collaborators) (map[string]domain.Router, error) {
	out := make(map[string]domain.Router)
	err := c.each(deps, func(g *domain.Graph) {
		for _, e := range g.Edges() {
			if !e.Conditional() {
				continue
			}
			r := *e.Router
			r.Name = g.Name() + "." + r.Name
			r.Outcomes = slices.Clone(r.Outcomes)
			out[r.Name] = r
		}
	})
	return out, err
}

// Registry exposes every step and router of the catalog for declarative
// definitions.
func (c *Catalog) Registry(deps Collaborators) (*registry.Registry, error) {
	steps, err := c.Steps(deps)
	if err != nil {
		return nil, err
	}
	routers, err := c.Routers(deps)
	if err != nil {
		return nil, err
	}

	reg := registry.NewRegistry()
	for name, fn := range steps {
		reg.RegisterStep(name, fn)
	}
	for _, r := range routers {
		reg.RegisterRouter(r)
	}
	return reg, nil
}

func (c *Catalog) each(deps Collaborators, fn func(*domain.Graph)) error {
	for _, name := range c.Names() {
		g, err := c.Build(name, deps)
		if err != nil {
			return fmt.Errorf("build %s: %w", name, err)
		}
		fn(g)
	}
	return nil
}
