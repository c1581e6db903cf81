package workflows

import (
	"fmt"
	"slices"
	"sync"

	"github.com/aretw0/waypoint/pkg/domain"
)

// Library is a set of built graphs, keyed by graph name.
// The outer surfaces resolve workflows through it.
type Library struct {
	mu     sync.RWMutex
	graphs map[string]*domain.Graph
}

// NewLibrary creates a library holding graphs.
func NewLibrary(graphs ...*domain.Graph) *Library {
	l := &Library{graphs: make(map[string]*domain.Graph, len(graphs))}
	for _, g := range graphs {
		l.Add(g)
	}
	return l
}

// Library builds every workflow of the catalog against deps.
func (c *Catalog) Library(deps Collaborators) (*Library, error) {
	l := NewLibrary()
	err := c.each(deps, l.Add)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// Add adds or replaces a graph under its own name.
func (l *Library) Add(g *domain.Graph) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.graphs[g.Name()] = g
}

// Names lists the graphs in lexical order.
func (l *Library) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.graphs))
	for name := range l.graphs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Graph returns the graph called name, or an error wrapping ErrUnknownWorkflow.
func (l *Library) Graph(name string) (*domain.Graph, error) {
	l.mu.RLock()
	g, ok := l.graphs[name]
	l.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownWorkflow, name)
	}
	return g, nil
}
