package postgres_test

import (
	"context"
	"testing"

	"github.com/aretw0/waypoint/pkg/adapters/postgres"
	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/aretw0/waypoint/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestPostgresDirectory(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in -short mode")
	}
	ctx := context.Background()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("waypoint"),
		tcpostgres.WithUsername("user"),
		tcpostgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2)),
	)
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Fatalf("failed to terminate container: %s", err)
		}
	}()

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := postgres.Connect(ctx, connStr)
	require.NoError(t, err)
	defer pool.Close()

	dir := postgres.NewDirectory(pool)
	require.NoError(t, dir.EnsureSchema(ctx))
	require.NoError(t, dir.EnsureSchema(ctx), "schema creation is repeatable")
	require.NoError(t, dir.Seed(ctx, ports.DirectoryFixture...))

	ports.RunDirectoryContract(t, dir)

	t.Run("Seed Upserts", func(t *testing.T) {
		require.NoError(t, dir.Seed(ctx, domain.Record{ID: 1, Name: "John", Contact: "john@new.example.com"}))
		got, err := dir.Query(ctx, ports.Criteria{Name: "John"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "john@new.example.com", got[0].Contact)
	})
}
