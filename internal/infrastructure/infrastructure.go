// Package infrastructure provides core service initialization for application startup.
// It assembles common dependencies (logging, databases, cache, storage, metrics)
// that domain systems require.
package infrastructure

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/DevDizzle/galatiq-invoice-agent/internal/config"
	"github.com/DevDizzle/galatiq-invoice-agent/pkg/database"
	"github.com/DevDizzle/galatiq-invoice-agent/pkg/lifecycle"
	"github.com/DevDizzle/galatiq-invoice-agent/pkg/storage"
)

// Infrastructure holds the core systems required by all domain modules.
// Database and Redis back the run store and are nil unless the configured
// store needs them.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Inventory database.System
	Database  database.System
	Redis     *redis.Client
	Storage   storage.System
	Metrics   *prometheus.Registry
}

// New creates an Infrastructure from the application configuration.
// It initializes all systems but does not start them; call Start separately.
func New(cfg *config.Config) (*Infrastructure, error) {
	lc := lifecycle.New()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))

	invCfg, err := cfg.Inventory.Database()
	if err != nil {
		return nil, fmt.Errorf("inventory config: %w", err)
	}
	inventory, err := database.New(invCfg, logger.With("database", "inventory"))
	if err != nil {
		return nil, fmt.Errorf("inventory database init failed: %w", err)
	}

	infra := &Infrastructure{
		Lifecycle: lc,
		Logger:    logger,
		Inventory: inventory,
		Metrics:   newRegistry(),
	}

	switch cfg.Runs.Store {
	case config.StorePostgres:
		if infra.Database, err = database.New(&cfg.Database, logger.With("database", "runs")); err != nil {
			return nil, fmt.Errorf("database init failed: %w", err)
		}
	case config.StoreSQLite:
		runsCfg, err := cfg.Runs.SQLiteDatabase()
		if err != nil {
			return nil, fmt.Errorf("runs database config: %w", err)
		}
		if infra.Database, err = database.New(runsCfg, logger.With("database", "runs")); err != nil {
			return nil, fmt.Errorf("database init failed: %w", err)
		}
	case config.StoreRedis:
		infra.Redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Runs.Redis.Addr,
			Password: cfg.Runs.Redis.Password,
			DB:       cfg.Runs.Redis.DB,
		})
	}

	if infra.Storage, err = storage.New(&cfg.Storage, logger); err != nil {
		return nil, fmt.Errorf("storage init failed: %w", err)
	}

	return infra, nil
}

// Start registers all infrastructure systems with the lifecycle coordinator.
func (i *Infrastructure) Start() error {
	if err := i.Inventory.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("inventory database start failed: %w", err)
	}
	if i.Database != nil {
		if err := i.Database.Start(i.Lifecycle); err != nil {
			return fmt.Errorf("database start failed: %w", err)
		}
	}
	if i.Redis != nil {
		startRedis(i.Lifecycle, i.Redis, i.Logger.With("system", "redis"))
	}
	if err := i.Storage.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("storage start failed: %w", err)
	}
	return nil
}

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}
