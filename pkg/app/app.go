// Package app wires configuration into running geodir components: the store
// adapter, the change event publisher, the repositories and the HTTP servers.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/nimburion/geodir/pkg/api"
	"github.com/nimburion/geodir/pkg/config"
	"github.com/nimburion/geodir/pkg/eventbus"
	eventbusfactory "github.com/nimburion/geodir/pkg/eventbus/factory"
	"github.com/nimburion/geodir/pkg/health"
	"github.com/nimburion/geodir/pkg/middleware/ratelimit"
	"github.com/nimburion/geodir/pkg/migrate"
	"github.com/nimburion/geodir/pkg/observability/logger"
	"github.com/nimburion/geodir/pkg/observability/metrics"
	"github.com/nimburion/geodir/pkg/repository"
	"github.com/nimburion/geodir/pkg/seed"
	"github.com/nimburion/geodir/pkg/server"
	"github.com/nimburion/geodir/pkg/store"
	"github.com/nimburion/geodir/pkg/store/sqldb"
)

// Serve opens the store and event bus, optionally migrates the schema and
// runs the public and management servers until ctx is cancelled.
func Serve(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	adapter, err := store.NewSQLAdapter(cfg.Database, log)
	if err != nil {
		return err
	}

	if cfg.Database.AutoMigrate {
		if _, err := migrate.ApplyPending(ctx, adapter, log); err != nil {
			_ = adapter.Close()
			return fmt.Errorf("auto migrate: %w", err)
		}
	}

	publisher, err := eventbusfactory.NewPublisher(cfg.EventBus, log)
	if err != nil {
		_ = adapter.Close()
		return err
	}

	limiter, err := ratelimit.New(cfg.RateLimit, log)
	if err != nil {
		_ = publisher.Close()
		_ = adapter.Close()
		return fmt.Errorf("rate limiter: %w", err)
	}

	opts := serverOptions(cfg, log, adapter, publisher, limiter)
	servers, err := server.BuildHTTPServers(opts)
	if err != nil {
		closeLimiter(limiter)
		_ = publisher.Close()
		_ = adapter.Close()
		return err
	}
	return server.RunHTTPServers(ctx, servers, opts)
}

func serverOptions(cfg *config.Config, log logger.Logger, adapter *sqldb.Adapter, publisher eventbus.Publisher, limiter ratelimit.Limiter) *server.RunHTTPServersOptions {
	dir := repository.NewDirectory(adapter, log, publisher)
	registry := healthRegistry(adapter, publisher)
	hooks := []server.LifecycleHook{
		{Name: "eventbus", Fn: func(context.Context) error { return publisher.Close() }},
		{Name: "database", Fn: func(context.Context) error { return adapter.Close() }},
	}
	if store, ok := limiter.(*ratelimit.RedisLimiter); ok {
		registry.Register(health.NewRateLimitChecker(store))
		hooks = append(hooks, server.LifecycleHook{Name: "ratelimit", Fn: func(context.Context) error { return store.Close() }})
	}

	return &server.RunHTTPServersOptions{
		Config:          cfg,
		Logger:          log,
		RegisterRoutes:  api.NewHandler(dir, log).Register,
		RateLimiter:     limiter,
		HealthRegistry:  registry,
		MetricsRegistry: metrics.NewRegistry(),
		ShutdownHooks:   hooks,
	}
}

func closeLimiter(limiter ratelimit.Limiter) {
	if store, ok := limiter.(*ratelimit.RedisLimiter); ok {
		_ = store.Close()
	}
}

// healthRegistry checks the store, and the broker when the publisher can
// report on it.
func healthRegistry(db health.Checkable, publisher eventbus.Publisher) *health.Registry {
	registry := health.NewRegistry()
	registry.Register(health.NewDatabaseChecker(db))
	if broker, ok := publisher.(health.Checkable); ok {
		registry.Register(health.NewEventBusChecker(broker))
	}
	return registry
}

// Migrate runs one migrate direction ("up", "down" or "status") against the
// embedded schema.
func Migrate(ctx context.Context, cfg *config.Config, log logger.Logger, direction string, steps int) error {
	adapter, err := store.NewSQLAdapter(cfg.Database, log)
	if err != nil {
		return err
	}
	defer adapter.Close()

	return migrate.RunWithAdapter(ctx, adapter, cfg.Service.Name, direction, steps, 0, log)
}

// Seed loads cfg.Seed.File, or the built-in fixture when no file is set.
// Change events are published for every created entry.
func Seed(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	fixture := seed.DefaultFixture()
	if cfg.Seed.File != "" {
		loaded, err := seed.LoadFile(cfg.Seed.File)
		if err != nil {
			return err
		}
		fixture = loaded
	}

	adapter, err := store.NewSQLAdapter(cfg.Database, log)
	if err != nil {
		return err
	}
	defer adapter.Close()

	publisher, err := eventbusfactory.NewPublisher(cfg.EventBus, log)
	if err != nil {
		return err
	}
	defer publisher.Close()

	_, err = runSeed(ctx, adapter, publisher, fixture, cfg.Seed.IgnoreDuplicates, log)
	return err
}

func runSeed(ctx context.Context, db repository.DB, publisher eventbus.Publisher, fixture *seed.Fixture, ignoreDuplicates bool, log logger.Logger) (*seed.Report, error) {
	dir := repository.NewDirectory(db, log, publisher)
	loader := seed.NewLoader(dir, log, seed.Options{IgnoreDuplicates: ignoreDuplicates})
	report, err := loader.Load(ctx, fixture)
	if err != nil {
		log.Error("seed failed",
			"created", report.TotalCreated(),
			"skipped", report.TotalSkipped(),
			"error", err,
		)
		return report, err
	}
	return report, nil
}

// CheckDependencies opens the store and event bus once and runs their health
// checks. A degraded event bus is reported but does not fail the check.
func CheckDependencies(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	adapter, err := store.NewSQLAdapter(cfg.Database, log)
	if err != nil {
		return err
	}
	defer adapter.Close()

	publisher, err := eventbusfactory.NewPublisher(cfg.EventBus, log)
	if err != nil {
		return err
	}
	defer publisher.Close()

	return checkRegistry(ctx, healthRegistry(adapter, publisher), log)
}

func checkRegistry(ctx context.Context, registry *health.Registry, log logger.Logger) error {
	result := registry.Check(ctx)
	var errs []error
	for _, check := range result.Checks {
		log.Info("dependency check", "name", check.Name, "status", string(check.Status), "error", check.Error)
		if check.Status == health.StatusUnhealthy {
			errs = append(errs, fmt.Errorf("%s: %s", check.Name, check.Error))
		}
	}
	return errors.Join(errs...)
}
