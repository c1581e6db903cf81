package ports

import (
	"context"

	"github.com/aretw0/waypoint/pkg/domain"
)

// StateStore persists the last-known State of a run, keyed by correlation id.
type StateStore interface {
	// Save persists the state for a given correlation id, replacing any previous one.
	Save(ctx context.Context, correlationID string, state *domain.State) error

	// Load retrieves the state for a given correlation id.
	// Returns domain.ErrSessionNotFound if nothing was saved.
	Load(ctx context.Context, correlationID string) (*domain.State, error)

	// Delete removes the state for a given correlation id.
	Delete(ctx context.Context, correlationID string) error

	// List returns the correlation ids of every stored state.
	List(ctx context.Context) ([]string, error)
}
