package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStateStoreContract runs a suite of tests to verify that a StateStore implementation
// adheres to the defined interface contract.
func RunStateStoreContract(t *testing.T, store StateStore) {
	ctx := context.Background()
	runID := "contract-test-run-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		state := domain.NewState(runID, "contract")
		state.Merge(domain.Delta{"foo": "bar", "count": 42})
		state.History = []string{"first", "second"}
		state.CurrentStep = "second"
		state.Steps = 2
		state.Status = domain.StatusCompleted

		require.NoError(t, store.Save(ctx, runID, state), "Save should not return error")

		loaded, err := store.Load(ctx, runID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, runID, loaded.CorrelationID)
		assert.Equal(t, "contract", loaded.Graph)
		assert.Equal(t, "second", loaded.CurrentStep)
		assert.Equal(t, []string{"first", "second"}, loaded.History)
		assert.Equal(t, 2, loaded.Steps)
		assert.Equal(t, domain.StatusCompleted, loaded.Status)
		assert.Equal(t, "bar", loaded.Values["foo"])
		// JSON-backed stores may hand numbers back as float64; the accessor hides that.
		count, ok := loaded.Int("count")
		assert.True(t, ok)
		assert.Equal(t, 42, count)
	})

	t.Run("Save Overwrites", func(t *testing.T) {
		state := domain.NewState(runID, "contract")
		state.Merge(domain.Delta{"foo": "baz"})
		require.NoError(t, store.Save(ctx, runID, state))

		loaded, err := store.Load(ctx, runID)
		require.NoError(t, err)
		assert.Equal(t, "baz", loaded.Values["foo"])
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+runID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, runID, domain.NewState(runID, "contract")))

		require.NoError(t, store.Delete(ctx, runID), "Delete should not return error")

		_, err := store.Load(ctx, runID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := runID + "-1"
		id2 := runID + "-2"
		_ = store.Save(ctx, id1, domain.NewState(id1, "contract"))
		_ = store.Save(ctx, id2, domain.NewState(id2, "contract"))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})
}

// DirectoryFixture is the record set RunDirectoryContract expects the
// directory under test to be seeded with.
var DirectoryFixture = []domain.Record{
	{ID: 1, Name: "John", Contact: "john@example.com"},
	{ID: 2, Name: "Tom", Contact: "tom@example.com"},
	{ID: 3, Name: "recommend:Trail Mix", Contact: "https://shop.example.com/trail-mix"},
	{ID: 4, Name: "recommend:Hiking Boots", Contact: "https://shop.example.com/boots"},
}

// RunDirectoryContract verifies a Directory seeded with DirectoryFixture.
// Results must be ordered by ID.
func RunDirectoryContract(t *testing.T, dir Directory) {
	ctx := context.Background()

	t.Run("Query By Name", func(t *testing.T) {
		got, err := dir.Query(ctx, Criteria{Name: "John"})
		require.NoError(t, err)
		assert.Equal(t, DirectoryFixture[:1], got)
	})

	t.Run("Query Missing Name", func(t *testing.T) {
		got, err := dir.Query(ctx, Criteria{Name: "Nobody"})
		require.NoError(t, err, "an empty result is not an error")
		assert.Empty(t, got)
	})

	t.Run("Query By Prefix", func(t *testing.T) {
		got, err := dir.Query(ctx, Criteria{NamePrefix: "recommend:"})
		require.NoError(t, err)
		assert.Equal(t, DirectoryFixture[2:], got)
	})

	t.Run("Query With Limit", func(t *testing.T) {
		got, err := dir.Query(ctx, Criteria{NamePrefix: "recommend:", Limit: 1})
		require.NoError(t, err)
		assert.Equal(t, DirectoryFixture[2:3], got)
	})

	t.Run("Query All", func(t *testing.T) {
		got, err := dir.Query(ctx, Criteria{})
		require.NoError(t, err)
		assert.Equal(t, DirectoryFixture, got)
	})
}
