package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/DevDizzle/galatiq-invoice-agent/pkg/database"
)

// Run store backends.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

const (
	EnvRunsStore          = "INVOICE_RUNS_STORE"
	EnvRunsTable          = "INVOICE_RUNS_TABLE"
	EnvRunsSQLitePath     = "INVOICE_RUNS_SQLITE_PATH"
	EnvRunsProcessWorkers = "INVOICE_RUNS_PROCESS_WORKERS"
	EnvRedisAddr          = "INVOICE_REDIS_ADDR"
	EnvRedisPassword      = "INVOICE_REDIS_PASSWORD"
	EnvRedisDB            = "INVOICE_REDIS_DB"
	EnvRedisPrefix        = "INVOICE_REDIS_PREFIX"
	EnvRedisTTL           = "INVOICE_REDIS_TTL"
)

// RunsConfig selects the run store and bounds background processing.
type RunsConfig struct {
	Store          string      `toml:"store"`
	Table          string      `toml:"table"`
	SQLitePath     string      `toml:"sqlite_path"`
	ProcessWorkers int         `toml:"process_workers"`
	Redis          RedisConfig `toml:"redis"`
}

// RedisConfig holds connection settings for the Redis run store.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	Prefix   string `toml:"prefix"`
	TTL      string `toml:"ttl"`
}

// TTLDuration returns TTL as a time.Duration. Zero means no expiry.
func (c *RedisConfig) TTLDuration() time.Duration {
	d, _ := time.ParseDuration(c.TTL)
	return d
}

// SQLiteDatabase returns a finalized SQLite config for the run store file.
func (c *RunsConfig) SQLiteDatabase() (*database.Config, error) {
	cfg := &database.Config{Driver: database.DriverSQLite, Path: c.SQLitePath}
	if err := cfg.Finalize(nil); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *RunsConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *RunsConfig) Merge(overlay *RunsConfig) {
	if overlay.Store != "" {
		c.Store = overlay.Store
	}
	if overlay.Table != "" {
		c.Table = overlay.Table
	}
	if overlay.SQLitePath != "" {
		c.SQLitePath = overlay.SQLitePath
	}
	if overlay.ProcessWorkers != 0 {
		c.ProcessWorkers = overlay.ProcessWorkers
	}
	if overlay.Redis.Addr != "" {
		c.Redis.Addr = overlay.Redis.Addr
	}
	if overlay.Redis.Password != "" {
		c.Redis.Password = overlay.Redis.Password
	}
	if overlay.Redis.DB != 0 {
		c.Redis.DB = overlay.Redis.DB
	}
	if overlay.Redis.Prefix != "" {
		c.Redis.Prefix = overlay.Redis.Prefix
	}
	if overlay.Redis.TTL != "" {
		c.Redis.TTL = overlay.Redis.TTL
	}
}

func (c *RunsConfig) loadDefaults() {
	if c.Store == "" {
		c.Store = StoreMemory
	}
	if c.Table == "" {
		c.Table = "invoice_runs"
	}
	if c.SQLitePath == "" {
		c.SQLitePath = "runs.db"
	}
	if c.ProcessWorkers == 0 {
		c.ProcessWorkers = 4
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "invoice:run:"
	}
}

func (c *RunsConfig) loadEnv() {
	str := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		if v := os.Getenv(name); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	str(EnvRunsStore, &c.Store)
	str(EnvRunsTable, &c.Table)
	str(EnvRunsSQLitePath, &c.SQLitePath)
	num(EnvRunsProcessWorkers, &c.ProcessWorkers)
	str(EnvRedisAddr, &c.Redis.Addr)
	str(EnvRedisPassword, &c.Redis.Password)
	num(EnvRedisDB, &c.Redis.DB)
	str(EnvRedisPrefix, &c.Redis.Prefix)
	str(EnvRedisTTL, &c.Redis.TTL)
}

func (c *RunsConfig) validate() error {
	switch c.Store {
	case StoreMemory, StoreSQLite, StorePostgres, StoreRedis:
	default:
		return fmt.Errorf("unsupported store: %q", c.Store)
	}
	if c.ProcessWorkers < 1 {
		return fmt.Errorf("process_workers must be positive: %d", c.ProcessWorkers)
	}
	if c.Redis.TTL != "" {
		if _, err := time.ParseDuration(c.Redis.TTL); err != nil {
			return fmt.Errorf("invalid redis ttl: %w", err)
		}
	}
	return nil
}
