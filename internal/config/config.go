package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	gaconfig "github.com/JaimeStill/go-agents/pkg/config"
	"github.com/pelletier/go-toml/v2"

	"github.com/DevDizzle/galatiq-invoice-agent/pkg/database"
	"github.com/DevDizzle/galatiq-invoice-agent/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvInvoiceEnv             = "INVOICE_ENV"
	EnvInvoiceShutdownTimeout = "INVOICE_SHUTDOWN_TIMEOUT"
	EnvInvoiceVersion         = "INVOICE_VERSION"
	EnvInvoiceLogLevel        = "INVOICE_LOG_LEVEL"
)

var databaseEnv = &database.Env{
	Host:            "INVOICE_DB_HOST",
	Port:            "INVOICE_DB_PORT",
	Name:            "INVOICE_DB_NAME",
	User:            "INVOICE_DB_USER",
	Password:        "INVOICE_DB_PASSWORD",
	SSLMode:         "INVOICE_DB_SSL_MODE",
	MaxOpenConns:    "INVOICE_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "INVOICE_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "INVOICE_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "INVOICE_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	Backend:          "INVOICE_STORAGE_BACKEND",
	ContainerName:    "INVOICE_STORAGE_CONTAINER_NAME",
	ConnectionString: "INVOICE_STORAGE_CONNECTION_STRING",
	Root:             "INVOICE_STORAGE_ROOT",
}

// Config is the root configuration for the invoice service and CLI.
type Config struct {
	Server          ServerConfig         `toml:"server"`
	Database        database.Config      `toml:"database"`
	Storage         storage.Config       `toml:"storage"`
	API             APIConfig            `toml:"api"`
	Agent           gaconfig.AgentConfig `toml:"agent"`
	Workflow        WorkflowConfig       `toml:"workflow"`
	Inventory       InventoryConfig      `toml:"inventory"`
	Runs            RunsConfig           `toml:"runs"`
	ShutdownTimeout string               `toml:"shutdown_timeout"`
	Version         string               `toml:"version"`
	LogLevel        string               `toml:"log_level"`
}

// Env returns the INVOICE_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvInvoiceEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Level returns LogLevel as a slog.Level.
func (c *Config) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and environment
// variables provide all configuration.
func Load() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.Finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	if overlay.LogLevel != "" {
		c.LogLevel = overlay.LogLevel
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.API.Merge(&overlay.API)
	c.Agent.Merge(&overlay.Agent)
	c.Workflow.Merge(&overlay.Workflow)
	c.Inventory.Merge(&overlay.Inventory)
	c.Runs.Merge(&overlay.Runs)
}

// Finalize applies defaults, environment overrides, and validation to every
// section. The database section is only finalized for the postgres run store.
func (c *Config) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := FinalizeAgent(&c.Agent); err != nil {
		return fmt.Errorf("agent: %w", err)
	}
	if err := c.Workflow.Finalize(); err != nil {
		return fmt.Errorf("workflow: %w", err)
	}
	if err := c.Inventory.Finalize(); err != nil {
		return fmt.Errorf("inventory: %w", err)
	}
	if err := c.Runs.Finalize(); err != nil {
		return fmt.Errorf("runs: %w", err)
	}
	if c.Runs.Store == StorePostgres {
		if err := c.Database.Finalize(databaseEnv); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvInvoiceShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvInvoiceVersion); v != "" {
		c.Version = v
	}
	if v := os.Getenv(EnvInvoiceLogLevel); v != "" {
		c.LogLevel = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return fmt.Errorf("invalid log_level: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvInvoiceEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
