package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/aretw0/waypoint/pkg/ports"
)

// Directory implements ports.Directory over an in-memory record set.
type Directory struct {
	mu      sync.RWMutex
	records []domain.Record
}

// NewDirectory creates a directory holding the given records.
func NewDirectory(records ...domain.Record) *Directory {
	d := &Directory{}
	d.Seed(records...)
	return d
}

// Seed adds records, replacing any with the same ID.
func (d *Directory) Seed(records ...domain.Record) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, r := range records {
		i := slices.IndexFunc(d.records, func(existing domain.Record) bool { return existing.ID == r.ID })
		if i >= 0 {
			d.records[i] = r
			continue
		}
		d.records = append(d.records, r)
	}
	slices.SortFunc(d.records, func(a, b domain.Record) int { return cmp.Compare(a.ID, b.ID) })
}

// Query returns the matching records ordered by ID.
func (d *Directory) Query(ctx context.Context, c ports.Criteria) ([]domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []domain.Record
	for _, r := range d.records {
		if c.Name != "" && r.Name != c.Name {
			continue
		}
		if !strings.HasPrefix(r.Name, c.NamePrefix) {
			continue
		}
		out = append(out, r)
		if c.Limit > 0 && len(out) == c.Limit {
			break
		}
	}
	return out, nil
}
