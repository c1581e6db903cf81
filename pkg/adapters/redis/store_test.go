package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/waypoint/pkg/adapters/redis"
	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/aretw0/waypoint/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newClient(t)
	ports.RunStateStoreContract(t, redis.NewFromClient(client))
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, client := newClient(t)

	now := time.Unix(1_700_000_000, 0)
	store := redis.NewFromClient(client,
		redis.WithTTL(time.Second),
		redis.WithClock(func() time.Time { return now }),
	)
	ctx := context.Background()
	id := "run-ttl"

	state := domain.NewState(id, "g")
	state.Merge(domain.Delta{"foo": "bar"})
	require.NoError(t, store.Save(ctx, id, state))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, ids, id)

	// Expire the key in Redis and move the index clock past the deadline.
	mr.FastForward(2 * time.Second)
	now = now.Add(2 * time.Second)

	_, err = store.Load(ctx, id)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	ids, err = store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := newClient(t)

	store := redis.NewFromClient(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()
	id := "my-run"

	require.NoError(t, store.Save(ctx, id, domain.NewState(id, "g")))

	assert.True(t, mr.Exists("custom:app:my-run"), "Expected key with custom prefix to exist")
	assert.True(t, mr.Exists("custom:app:index"), "Expected index with custom prefix to exist")

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, list, id)
}

func TestRedisDirectory_Contract(t *testing.T) {
	_, client := newClient(t)
	dir := redis.NewDirectory(client, "")

	require.NoError(t, dir.Seed(context.Background(), ports.DirectoryFixture...))
	ports.RunDirectoryContract(t, dir)
}

func TestRedisDirectory_Rename(t *testing.T) {
	_, client := newClient(t)
	dir := redis.NewDirectory(client, "test:")
	ctx := context.Background()

	require.NoError(t, dir.Seed(ctx, domain.Record{ID: 7, Name: "Old", Contact: "a@example.com"}))
	require.NoError(t, dir.Seed(ctx, domain.Record{ID: 7, Name: "New", Contact: "b@example.com"}))

	got, err := dir.Query(ctx, ports.Criteria{Name: "Old"})
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = dir.Query(ctx, ports.Criteria{Name: "New"})
	require.NoError(t, err)
	assert.Equal(t, []domain.Record{{ID: 7, Name: "New", Contact: "b@example.com"}}, got)
}
