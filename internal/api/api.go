// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"net/http"

	"github.com/DevDizzle/galatiq-invoice-agent/internal/config"
	"github.com/DevDizzle/galatiq-invoice-agent/internal/infrastructure"
	"github.com/DevDizzle/galatiq-invoice-agent/pkg/middleware"
	"github.com/DevDizzle/galatiq-invoice-agent/pkg/module"
)

// NewModule creates the API module with all domain handlers and middleware.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, *Domain, error) {
	runtime := NewRuntime(cfg, infra)

	domain, err := NewDomain(cfg, runtime)
	if err != nil {
		return nil, nil, err
	}

	mux := http.NewServeMux()
	patterns := registerRoutes(mux, domain, cfg, runtime)
	runtime.Logger.Debug("routes registered", "patterns", patterns)

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.Recover(runtime.Logger))
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.Logger(runtime.Logger))

	return m, domain, nil
}
