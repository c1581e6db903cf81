package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/waypoint"
	"github.com/aretw0/waypoint/internal/config"
	"github.com/aretw0/waypoint/pkg/adapters/file"
	"github.com/aretw0/waypoint/pkg/adapters/fixed"
	httpAdapter "github.com/aretw0/waypoint/pkg/adapters/http"
	"github.com/aretw0/waypoint/pkg/adapters/memory"
	"github.com/aretw0/waypoint/pkg/adapters/postgres"
	"github.com/aretw0/waypoint/pkg/adapters/redis"
	"github.com/aretw0/waypoint/pkg/adapters/smtp"
	"github.com/aretw0/waypoint/pkg/adapters/system"
	"github.com/aretw0/waypoint/pkg/definition"
	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/aretw0/waypoint/pkg/observability"
	"github.com/aretw0/waypoint/pkg/persistence/middleware"
	"github.com/aretw0/waypoint/pkg/ports"
	"github.com/aretw0/waypoint/pkg/workflows"
)

// Overrides script a single invocation on top of the config.
type Overrides struct {
	// Weekday pins the clock to 09:00 UTC on this day.
	Weekday string
	// Draws are replayed by the random source instead of real entropy.
	Draws []int
	// Definitions are YAML or JSON graph documents added to the library.
	Definitions []string
}

// Runtime is everything a command needs, wired from the config.
type Runtime struct {
	Config        *config.Config
	Logger        *slog.Logger
	Engine        *waypoint.Engine
	Library       *workflows.Library
	Collaborators workflows.Collaborators

	// Outbox is set when the notifier backend is the in-memory outbox.
	Outbox   *memory.Outbox
	Metrics  *prometheus.Registry
	Streams  *httpAdapter.StreamManager
	Trace    *observability.Recorder
	closers  []func() error
	redisCli backend.UniversalClient
}

// Close releases the connections opened by Build.
func (rt *Runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		errs = append(errs, rt.closers[i]())
	}
	rt.closers = nil
	return errors.Join(errs...)
}

// redisClient returns the shared client, dialing on first use.
func (rt *Runtime) redisClient() backend.UniversalClient {
	if rt.redisCli == nil {
		cfg := rt.Config.Redis
		client := backend.NewClient(&backend.Options{Addr: cfg.Address, Password: cfg.Password, DB: cfg.DB})
		rt.redisCli = client
		rt.closers = append(rt.closers, client.Close)
	}
	return rt.redisCli
}

// Build wires collaborators, checkpoint store, hooks and workflows from cfg.
// The caller must Close the Runtime.
func Build(ctx context.Context, cfg *config.Config, ov Overrides, logger *slog.Logger) (_ *Runtime, err error) {
	rt := &Runtime{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			_ = rt.Close()
		}
	}()

	if err := rt.wireCollaborators(ctx, ov); err != nil {
		return nil, err
	}

	store, err := rt.checkpointStore()
	if err != nil {
		return nil, err
	}

	rt.Metrics = prometheus.NewRegistry()
	rt.Metrics.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := observability.NewMetrics(rt.Metrics)
	if err != nil {
		return nil, err
	}
	rt.Streams = httpAdapter.NewStreamManager(logger)
	rt.Trace = observability.NewRecorder(0)

	opts := []waypoint.Option{
		waypoint.WithLogger(logger),
		waypoint.WithLifecycleHooks(observability.Combine(
			observability.LoggingHooks(logger),
			metrics.Hooks(),
			rt.Streams.Hooks(),
			rt.Trace.Hooks(),
		)),
		waypoint.WithTimeout(cfg.Engine.Timeout),
		waypoint.WithClock(rt.Collaborators.Clock),
	}
	if cfg.Engine.MaxSteps > 0 {
		opts = append(opts, waypoint.WithMaxSteps(cfg.Engine.MaxSteps))
	}
	if store != nil {
		opts = append(opts, waypoint.WithCheckpointStore(store))
	}
	if cfg.Redis.Lock {
		opts = append(opts, waypoint.WithLocker(redis.NewLocker(rt.redisClient(), cfg.Redis.Prefix), cfg.Redis.LockTTL))
	}
	rt.Engine = waypoint.New(opts...)

	catalog := workflows.NewCatalog()
	rt.Library, err = catalog.Library(rt.Collaborators)
	if err != nil {
		return nil, err
	}
	for _, path := range ov.Definitions {
		g, err := compileDefinition(catalog, rt.Collaborators, path)
		if err != nil {
			return nil, err
		}
		rt.Library.Add(g)
	}

	return rt, nil
}

func compileDefinition(catalog *workflows.Catalog, deps workflows.Collaborators, path string) (*domain.Graph, error) {
	doc, err := definition.Load(path)
	if err != nil {
		return nil, err
	}
	reg, err := catalog.Registry(deps)
	if err != nil {
		return nil, err
	}
	g, err := doc.Compile(reg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

func (rt *Runtime) wireCollaborators(ctx context.Context, ov Overrides) error {
	cfg := rt.Config

	var clock ports.Clock = system.Clock{}
	if ov.Weekday != "" {
		day, err := ParseWeekday(ov.Weekday)
		if err != nil {
			return err
		}
		clock = fixed.OnWeekday(day)
	}
	var random ports.RandomSource = system.Random{}
	if len(ov.Draws) > 0 {
		random = fixed.NewRandom(ov.Draws...)
	}

	dir, err := rt.directory(ctx)
	if err != nil {
		return err
	}

	var notifier ports.Notifier
	switch cfg.Notifier.Backend {
	case config.BackendSMTP:
		n, err := smtp.New(cfg.Notifier.SMTP, smtp.WithClock(clock.Now))
		if err != nil {
			return err
		}
		notifier = n
	default:
		rt.Outbox = memory.NewOutbox()
		notifier = rt.Outbox
	}

	rt.Collaborators = workflows.Collaborators{
		Notifier:  notifier,
		Directory: dir,
		Clock:     clock,
		Random:    random,
	}
	return nil
}

func (rt *Runtime) directory(ctx context.Context) (ports.Directory, error) {
	cfg := rt.Config
	var seed []domain.Record
	if cfg.Directory.Seed {
		seed = workflows.DemoRecords
	}

	switch cfg.Directory.Backend {
	case config.BackendRedis:
		dir := redis.NewDirectory(rt.redisClient(), cfg.Redis.Prefix)
		if err := dir.Seed(ctx, seed...); err != nil {
			return nil, err
		}
		return dir, nil
	case config.BackendPostgres:
		pool, err := postgres.Connect(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, func() error { pool.Close(); return nil })
		dir := postgres.NewDirectory(pool)
		if err := dir.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		if len(seed) > 0 {
			if err := dir.Seed(ctx, seed...); err != nil {
				return nil, err
			}
		}
		return dir, nil
	default:
		return memory.NewDirectory(seed...), nil
	}
}

// checkpointStore returns nil when checkpoints are disabled.
func (rt *Runtime) checkpointStore() (ports.StateStore, error) {
	cfg := rt.Config.Checkpoint

	var store ports.StateStore
	switch cfg.Backend {
	case config.BackendNone:
		return nil, nil
	case config.BackendMemory:
		store = memory.NewStore()
	case config.BackendRedis:
		store = redis.NewFromClient(rt.redisClient(),
			redis.WithPrefix(rt.Config.Redis.Prefix+"run:"),
			redis.WithTTL(cfg.TTL),
		)
	default:
		store = file.New(cfg.Path)
	}

	var mws []middleware.Middleware
	if len(cfg.PIIPatterns) > 0 {
		pii, err := middleware.NewPIIMiddleware(cfg.PIIPatterns)
		if err != nil {
			return nil, err
		}
		mws = append(mws, pii)
	}
	if cfg.EncryptionKey != "" {
		enc, err := encryption(cfg.EncryptionKey, cfg.FallbackKeys)
		if err != nil {
			return nil, err
		}
		mws = append(mws, enc)
	}
	return middleware.Chain(store, mws...), nil
}

func encryption(active string, fallbacks []string) (middleware.Middleware, error) {
	key, err := middleware.ParseKey(active)
	if err != nil {
		return nil, fmt.Errorf("checkpoint.encryption_key: %w", err)
	}
	ec := middleware.EncryptionConfig{ActiveKey: key}
	for i, s := range fallbacks {
		k, err := middleware.ParseKey(s)
		if err != nil {
			return nil, fmt.Errorf("checkpoint.fallback_keys[%d]: %w", i, err)
		}
		ec.FallbackKeys = append(ec.FallbackKeys, k)
	}
	return middleware.NewEncryptionMiddleware(ec)
}
