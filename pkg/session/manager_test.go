package session_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/waypoint/pkg/adapters/memory"
	"github.com/aretw0/waypoint/pkg/adapters/redis"
	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/aretw0/waypoint/pkg/ports"
	"github.com/aretw0/waypoint/pkg/session"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_SerializesSameID(t *testing.T) {
	mgr := session.NewManager(nil)
	ctx := context.Background()

	var (
		active  atomic.Int32
		overlap atomic.Bool
		wg      sync.WaitGroup
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := mgr.WithLock(ctx, "same", func(context.Context) error {
				if active.Add(1) > 1 {
					overlap.Store(true)
				}
				time.Sleep(2 * time.Millisecond)
				active.Add(-1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.False(t, overlap.Load(), "two holders of the same id overlapped")
}

func TestManager_DifferentIDsRunInParallel(t *testing.T) {
	mgr := session.NewManager(nil)
	ctx := context.Background()

	inside := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_ = mgr.WithLock(ctx, "a", func(context.Context) error {
			close(inside)
			<-done
			return nil
		})
	}()
	<-inside

	finished := make(chan struct{})
	go func() {
		_ = mgr.WithLock(ctx, "b", func(context.Context) error { return nil })
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("lock on b waited for a")
	}
	close(done)
}

func TestManager_Persistence(t *testing.T) {
	mgr := session.NewManager(memory.NewStore())
	ctx := context.Background()

	require.True(t, mgr.HasStore())
	require.NoError(t, mgr.Save(ctx, "r1", domain.NewState("r1", "g")))

	got, err := mgr.Load(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "r1", got.CorrelationID)

	ids, err := mgr.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"r1"}, ids)

	require.NoError(t, mgr.Delete(ctx, "r1"))
	_, err = mgr.Load(ctx, "r1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestManager_NoStore(t *testing.T) {
	mgr := session.NewManager(nil)
	ctx := context.Background()

	assert.False(t, mgr.HasStore())
	assert.ErrorIs(t, mgr.Save(ctx, "x", domain.NewState("x", "g")), session.ErrNoStore)
	_, err := mgr.Load(ctx, "x")
	assert.ErrorIs(t, err, session.ErrNoStore)
	_, err = mgr.List(ctx)
	assert.ErrorIs(t, err, session.ErrNoStore)
}

type failingLocker struct{ err error }

func (f failingLocker) Lock(context.Context, string, time.Duration) (ports.UnlockFunc, error) {
	return nil, f.err
}

func TestManager_DistributedLock(t *testing.T) {
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	defer client.Close()

	mgr := session.NewManager(memory.NewStore(),
		session.WithLocker(redis.NewLocker(client, "test:")),
		session.WithLockTTL(time.Minute),
	)
	ctx := context.Background()

	err := mgr.WithLock(ctx, "dist", func(context.Context) error {
		assert.True(t, mr.Exists("test:lock:dist"))
		assert.Equal(t, time.Minute, mr.TTL("test:lock:dist"))
		return nil
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists("test:lock:dist"))

	boom := errors.New("redis down")
	broken := session.NewManager(nil, session.WithLocker(failingLocker{err: boom}))
	err = broken.WithLock(ctx, "x", func(context.Context) error {
		t.Fatal("must not run without the lock")
		return nil
	})
	assert.ErrorIs(t, err, boom)
}
