package ports

import (
	"context"
	"time"

	"github.com/aretw0/waypoint/pkg/domain"
)

// Notifier delivers a message to a recipient.
// Steps usually record a failed send in the State instead of failing the run.
type Notifier interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

// Criteria filters a Directory query. Zero fields match everything.
type Criteria struct {
	// Name matches records with exactly this name.
	Name string
	// NamePrefix matches records whose name starts with the prefix.
	NamePrefix string
	// Limit caps the number of records returned. Zero means no cap.
	Limit int
}

// Directory is a read-only lookup store of records.
// An empty result is not an error.
type Directory interface {
	Query(ctx context.Context, c Criteria) ([]domain.Record, error)
}

// Clock tells the time.
type Clock interface {
	Now() time.Time
}

// RandomSource yields integers in the closed range [low, high].
type RandomSource interface {
	IntN(low, high int) int
}
