package waypoint

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/waypoint/internal/logging"
	"github.com/aretw0/waypoint/internal/runtime"
	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/aretw0/waypoint/pkg/ports"
	"github.com/aretw0/waypoint/pkg/session"
	"github.com/google/uuid"
)

// DefaultMaxSteps is the step budget of a run unless configured otherwise.
const DefaultMaxSteps = runtime.DefaultMaxSteps

// Engine is the high-level entry point of the library.
// It wraps the internal runtime with correlation, serialization and checkpoints.
type Engine struct {
	runtime  *runtime.Engine
	sessions *session.Manager
	store    ports.StateStore
	locker   ports.DistributedLocker
	lockTTL  time.Duration
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
	clock    ports.Clock
	maxSteps int
	timeout  time.Duration
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMaxSteps sets the default step budget of every run.
func WithMaxSteps(n int) Option {
	return func(e *Engine) {
		e.maxSteps = n
	}
}

// WithTimeout sets the default wall-clock budget of every run.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.timeout = d
	}
}

// WithCheckpointStore persists the final State of every successful run.
func WithCheckpointStore(store ports.StateStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithLocker serializes runs sharing a correlation id across processes.
// ttl bounds how long a crashed holder keeps the lock; zero means the session default.
func WithLocker(locker ports.DistributedLocker, ttl time.Duration) Option {
	return func(e *Engine) {
		e.locker = locker
		e.lockTTL = ttl
	}
}

// WithClock sets the time source for event timestamps and durations.
func WithClock(clock ports.Clock) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// New initializes an Engine.
func New(opts ...Option) *Engine {
	eng := &Engine{maxSteps: DefaultMaxSteps}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}

	runtimeOpts := []runtime.EngineOption{
		runtime.WithLifecycleHooks(eng.hooks),
		runtime.WithLogger(eng.logger),
	}
	if eng.clock != nil {
		runtimeOpts = append(runtimeOpts, runtime.WithClock(eng.clock.Now))
	}
	eng.runtime = runtime.NewEngine(runtimeOpts...)

	sessionOpts := []session.Option{session.WithLogger(eng.logger)}
	if eng.locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(eng.locker), session.WithLockTTL(eng.lockTTL))
	}
	eng.sessions = session.NewManager(eng.store, sessionOpts...)

	return eng
}

// RunOptions bounds a single run.
type RunOptions struct {
	MaxSteps int
	Timeout  time.Duration
}

// RunOption overrides the engine defaults for one run.
type RunOption func(*RunOptions)

// MaxSteps overrides the step budget for one run.
func MaxSteps(n int) RunOption {
	return func(o *RunOptions) {
		o.MaxSteps = n
	}
}

// Timeout overrides the wall-clock budget for one run. Zero disables it.
func Timeout(d time.Duration) RunOption {
	return func(o *RunOptions) {
		o.Timeout = d
	}
}

// Run executes g against the initial values and returns the final State.
//
// An empty correlationID is replaced by a random UUID. Runs sharing a
// correlation id are serialized. When a checkpoint store is configured the
// final State of a successful run is saved under the correlation id; if that
// save fails, Run returns the State together with the save error.
func (e *Engine) Run(ctx context.Context, g *domain.Graph, initial map[string]any, correlationID string, opts ...RunOption) (*domain.State, error) {
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	runOpts := RunOptions{MaxSteps: e.maxSteps, Timeout: e.timeout}
	for _, opt := range opts {
		opt(&runOpts)
	}

	var final *domain.State
	err := e.sessions.WithLock(ctx, correlationID, func(ctx context.Context) error {
		state, err := e.runtime.Run(ctx, g, initial, correlationID, runtime.RunOptions(runOpts))
		if err != nil {
			return err
		}
		final = state

		if !e.sessions.HasStore() {
			return nil
		}
		if err := e.sessions.SaveLocked(ctx, correlationID, state); err != nil {
			e.logger.Warn("checkpoint failed", "correlation_id", correlationID, "error", err)
			return fmt.Errorf("run %s completed but checkpoint failed: %w", correlationID, err)
		}
		return nil
	})
	return final, err
}

// Checkpoint returns the stored final State of a run.
func (e *Engine) Checkpoint(ctx context.Context, correlationID string) (*domain.State, error) {
	return e.sessions.Load(ctx, correlationID)
}

// Checkpoints lists the correlation ids that have a stored State.
func (e *Engine) Checkpoints(ctx context.Context) ([]string, error) {
	return e.sessions.List(ctx)
}

// Forget deletes the stored State of a run.
func (e *Engine) Forget(ctx context.Context, correlationID string) error {
	return e.sessions.Delete(ctx, correlationID)
}
