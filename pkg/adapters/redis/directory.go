package redis

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/aretw0/waypoint/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

// Directory implements ports.Directory over Redis hashes.
//
// Layout, under the prefix:
//
//	record:<id>          hash {name, contact}
//	records              sorted set of ids scored by id
//	record:name:<name>   set of ids carrying that name
type Directory struct {
	client backend.UniversalClient
	prefix string
}

// NewDirectory creates a directory on an existing client.
// An empty prefix means DefaultPrefix.
func NewDirectory(client backend.UniversalClient, prefix string) *Directory {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Directory{client: client, prefix: prefix}
}

func (d *Directory) recordKey(id int64) string { return d.prefix + "record:" + strconv.FormatInt(id, 10) }
func (d *Directory) indexKey() string          { return d.prefix + "records" }
func (d *Directory) nameKey(name string) string {
	return d.prefix + "record:name:" + name
}

// Seed writes records, replacing any with the same ID.
func (d *Directory) Seed(ctx context.Context, records ...domain.Record) error {
	for _, r := range records {
		// Drop the old name index entry when a record is renamed.
		old, err := d.client.HGet(ctx, d.recordKey(r.ID), "name").Result()
		if err != nil && err != backend.Nil {
			return fmt.Errorf("failed to read record %d: %w", r.ID, err)
		}

		id := strconv.FormatInt(r.ID, 10)
		_, err = d.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
			if old != "" && old != r.Name {
				pipe.SRem(ctx, d.nameKey(old), id)
			}
			pipe.HSet(ctx, d.recordKey(r.ID), "name", r.Name, "contact", r.Contact)
			pipe.ZAdd(ctx, d.indexKey(), backend.Z{Score: float64(r.ID), Member: id})
			pipe.SAdd(ctx, d.nameKey(r.Name), id)
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to seed record %d: %w", r.ID, err)
		}
	}
	return nil
}

// Query returns the matching records ordered by ID.
func (d *Directory) Query(ctx context.Context, c ports.Criteria) ([]domain.Record, error) {
	var (
		ids []string
		err error
	)
	if c.Name != "" {
		ids, err = d.client.SMembers(ctx, d.nameKey(c.Name)).Result()
	} else {
		ids, err = d.client.ZRange(ctx, d.indexKey(), 0, -1).Result()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query record index: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	pipe := d.client.Pipeline()
	cmds := make([]*backend.MapStringStringCmd, len(ids))
	parsed := make([]int64, len(ids))
	for i, raw := range ids {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupt record id %q: %w", raw, err)
		}
		parsed[i] = id
		cmds[i] = pipe.HGetAll(ctx, d.recordKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}

	out := make([]domain.Record, 0, len(ids))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		r := domain.Record{ID: parsed[i], Name: fields["name"], Contact: fields["contact"]}
		if !strings.HasPrefix(r.Name, c.NamePrefix) {
			continue
		}
		out = append(out, r)
	}

	slices.SortFunc(out, func(a, b domain.Record) int { return cmp.Compare(a.ID, b.ID) })
	if c.Limit > 0 && len(out) > c.Limit {
		out = out[:c.Limit]
	}
	return out, nil
}
