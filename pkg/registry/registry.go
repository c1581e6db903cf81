package registry

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/aretw0/waypoint/pkg/domain"
)

// Registry manages the step and router implementations that declarative
// definitions refer to by name.
type Registry struct {
	mu      sync.RWMutex
	steps   map[string]domain.StepFunc
	routers map[string]domain.Router
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		steps:   make(map[string]domain.StepFunc),
		routers: make(map[string]domain.Router),
	}
}

// RegisterStep adds a step implementation.
// If a step with the same name exists, it is overwritten.
func (r *Registry) RegisterStep(name string, fn domain.StepFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps[name] = fn
}

// RegisterRouter adds a router under its own name, outcomes included.
// If a router with the same name exists, it is overwritten.
func (r *Registry) RegisterRouter(router domain.Router) {
	router.Outcomes = slices.Clone(router.Outcomes)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.routers[router.Name] = router
}

// Step looks up a step implementation.
func (r *Registry) Step(name string) (domain.StepFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.steps[name]
	return fn, ok
}

// Router looks up a router. The returned outcomes may be modified freely.
func (r *Registry) Router(name string) (domain.Router, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	router, ok := r.routers[name]
	router.Outcomes = slices.Clone(router.Outcomes)
	return router, ok
}

// Steps returns the registered step names in lexical order.
func (r *Registry) Steps() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.steps)
}

// Routers returns the registered router names in lexical order.
func (r *Registry) Routers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.routers)
}

// Execute looks up a step by name and runs it against state.
// Returns an error if the step is not found.
func (r *Registry) Execute(ctx context.Context, name string, state *domain.State) (domain.Delta, error) {
	fn, ok := r.Step(name)
	if !ok {
		return nil, fmt.Errorf("step not found: %s", name)
	}
	return fn(ctx, state.Clone())
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
