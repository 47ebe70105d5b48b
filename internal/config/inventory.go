package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/DevDizzle/galatiq-invoice-agent/pkg/database"
)

const (
	EnvInventoryPath = "INVOICE_INVENTORY_PATH"
	EnvInventorySeed = "INVOICE_INVENTORY_SEED"
)

// InventoryConfig locates the SQLite stock table.
type InventoryConfig struct {
	Path string `toml:"path"`
	Seed *bool  `toml:"seed"`
}

// SeedEnabled reports whether the default catalog is loaded at startup.
func (c *InventoryConfig) SeedEnabled() bool {
	return c.Seed == nil || *c.Seed
}

// Database returns a finalized SQLite config for the inventory file.
func (c *InventoryConfig) Database() (*database.Config, error) {
	cfg := &database.Config{Driver: database.DriverSQLite, Path: c.Path}
	if err := cfg.Finalize(nil); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *InventoryConfig) Finalize() error {
	if c.Path == "" {
		c.Path = "inventory.db"
	}
	if v := os.Getenv(EnvInventoryPath); v != "" {
		c.Path = v
	}
	if v := os.Getenv(EnvInventorySeed); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvInventorySeed, err)
		}
		c.Seed = &b
	}
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *InventoryConfig) Merge(overlay *InventoryConfig) {
	if overlay.Path != "" {
		c.Path = overlay.Path
	}
	if overlay.Seed != nil {
		c.Seed = overlay.Seed
	}
}
