package api

import (
	"github.com/DevDizzle/galatiq-invoice-agent/internal/config"
	"github.com/DevDizzle/galatiq-invoice-agent/internal/decision"
	"github.com/DevDizzle/galatiq-invoice-agent/internal/infrastructure"
	"github.com/DevDizzle/galatiq-invoice-agent/internal/metrics"
)

// Runtime extends Infrastructure with API-scoped collaborators shared by
// every domain system.
type Runtime struct {
	*infrastructure.Infrastructure
	Agent    *decision.Agent
	Recorder *metrics.Recorder
}

// NewRuntime creates an API runtime with a module-scoped logger.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	scoped := *infra
	scoped.Logger = infra.Logger.With("module", "api")

	return &Runtime{
		Infrastructure: &scoped,
		Agent: decision.New(
			cfg.Agent,
			cfg.Workflow.DecisionTimeoutDuration(),
			scoped.Logger,
		),
		Recorder: metrics.New(infra.Metrics),
	}
}
