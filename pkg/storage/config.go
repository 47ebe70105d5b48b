package storage

import (
	"fmt"
	"os"
)

// Storage backends.
const (
	BackendAzure = "azure"
	BackendLocal = "local"
)

// Config selects a blob backend. Azure uses ContainerName and
// ConnectionString; local uses Root.
type Config struct {
	Backend          string `toml:"backend"`
	ContainerName    string `toml:"container_name"`
	ConnectionString string `toml:"connection_string"`
	Root             string `toml:"root"`
}

// Env maps config fields to environment variable names.
type Env struct {
	Backend          string
	ContainerName    string
	ConnectionString string
	Root             string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	if env != nil {
		c.loadEnv(env)
	}
	c.loadDefaults()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Backend != "" {
		c.Backend = overlay.Backend
	}
	if overlay.ContainerName != "" {
		c.ContainerName = overlay.ContainerName
	}
	if overlay.ConnectionString != "" {
		c.ConnectionString = overlay.ConnectionString
	}
	if overlay.Root != "" {
		c.Root = overlay.Root
	}
}

func (c *Config) loadDefaults() {
	if c.Backend == "" {
		c.Backend = BackendLocal
	}
	if c.ContainerName == "" {
		c.ContainerName = "invoices"
	}
	if c.Root == "" {
		c.Root = "uploads"
	}
}

func (c *Config) loadEnv(env *Env) {
	set := func(name string, dst *string) {
		if name == "" {
			return
		}
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	set(env.Backend, &c.Backend)
	set(env.ContainerName, &c.ContainerName)
	set(env.ConnectionString, &c.ConnectionString)
	set(env.Root, &c.Root)
}

func (c *Config) validate() error {
	switch c.Backend {
	case BackendAzure:
		if c.ConnectionString == "" {
			return fmt.Errorf("connection_string required for azure backend")
		}
	case BackendLocal:
	default:
		return fmt.Errorf("unsupported backend: %q", c.Backend)
	}
	return nil
}
