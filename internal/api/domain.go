package api

import (
	"fmt"

	"github.com/DevDizzle/galatiq-invoice-agent/internal/config"
	"github.com/DevDizzle/galatiq-invoice-agent/internal/extraction"
	"github.com/DevDizzle/galatiq-invoice-agent/internal/inventory"
	"github.com/DevDizzle/galatiq-invoice-agent/internal/payment"
	"github.com/DevDizzle/galatiq-invoice-agent/internal/runs"
	"github.com/DevDizzle/galatiq-invoice-agent/internal/workflow"
	"github.com/DevDizzle/galatiq-invoice-agent/pkg/audit"
	"github.com/DevDizzle/galatiq-invoice-agent/pkg/store"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Inventory inventory.System
	Runs      runs.System
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(cfg *config.Config, runtime *Runtime) (*Domain, error) {
	ctx := runtime.Lifecycle.Context()

	inv, err := inventory.New(ctx, runtime.Inventory.Connection(), runtime.Logger)
	if err != nil {
		return nil, fmt.Errorf("inventory init failed: %w", err)
	}
	if cfg.Inventory.SeedEnabled() {
		if err := inv.Seed(ctx, inventory.DefaultCatalog()); err != nil {
			return nil, fmt.Errorf("inventory seed failed: %w", err)
		}
	}

	states, err := newRunStore(cfg, runtime)
	if err != nil {
		return nil, fmt.Errorf("run store init failed: %w", err)
	}

	trail, err := audit.New(cfg.Workflow.AuditPath)
	if err != nil {
		return nil, fmt.Errorf("audit log init failed: %w", err)
	}

	rt := workflow.Runtime{
		Extractor: extraction.New(
			extraction.StorageOpener(runtime.Storage),
			runtime.Agent,
			cfg.Workflow.VisionFallbackEnabled(),
			runtime.Logger,
		),
		Inventory: inv,
		Decider:   runtime.Agent,
		Payments:  payment.NewMock(runtime.Logger),
		Audit:     trail,
		Metrics:   runtime.Recorder,
		Policy:    Policy(&cfg.Workflow),
		Logger:    runtime.Logger.With("system", "workflow"),
	}

	return &Domain{
		Inventory: inv,
		Runs: runs.New(
			states,
			runtime.Storage,
			rt,
			runtime.Lifecycle,
			cfg.Runs.ProcessWorkers,
			runtime.Logger,
		),
	}, nil
}

// Policy converts workflow configuration into a workflow policy.
func Policy(cfg *config.WorkflowConfig) workflow.Policy {
	return workflow.Policy{
		MaxRetries:        cfg.MaxRetries,
		ApprovalThreshold: cfg.ApprovalThreshold,
		DefaultConfidence: cfg.DefaultConfidence,
		FuzzyCutoff:       cfg.FuzzyCutoff,
	}
}

func newRunStore(cfg *config.Config, runtime *Runtime) (store.Store[workflow.InvoiceState], error) {
	switch cfg.Runs.Store {
	case config.StoreSQLite:
		return store.NewSQLite[workflow.InvoiceState](
			runtime.Lifecycle.Context(),
			runtime.Database.Connection(),
			cfg.Runs.Table,
		)
	case config.StorePostgres:
		return store.NewPostgres[workflow.InvoiceState](runtime.Database.Connection(), cfg.Runs.Table)
	case config.StoreRedis:
		return store.NewRedis[workflow.InvoiceState](
			runtime.Redis,
			cfg.Runs.Redis.Prefix,
			cfg.Runs.Redis.TTLDuration(),
		), nil
	default:
		return store.NewMemory[workflow.InvoiceState](), nil
	}
}
