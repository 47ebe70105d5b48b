package workflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/DevDizzle/galatiq-invoice-agent/internal/inventory"
	"github.com/DevDizzle/galatiq-invoice-agent/internal/metrics"
	"github.com/DevDizzle/galatiq-invoice-agent/internal/payment"
)

// Extractor returns the raw text of an invoice source.
type Extractor interface {
	Extract(ctx context.Context, ref string) (string, error)
}

// Inventory answers stock queries. Lookup returns inventory.NotFound for
// unknown names.
type Inventory interface {
	Lookup(ctx context.Context, name string) (int, error)
	Names(ctx context.Context) ([]string, error)
}

// Decider sends a composed prompt to the decision model.
type Decider interface {
	Decide(ctx context.Context, prompt string) (string, error)
}

// AuditSink appends one record per finished run.
type AuditSink interface {
	Append(v any) error
}

// Policy holds the tunable workflow constants.
type Policy struct {
	MaxRetries        int
	ApprovalThreshold float64
	DefaultConfidence float64
	FuzzyCutoff       float64
}

// DefaultPolicy returns the standard policy values.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:        3,
		ApprovalThreshold: 10000,
		DefaultConfidence: 0.8,
		FuzzyCutoff:       inventory.DefaultCutoff,
	}
}

// RetriesExhausted reports whether an ingest attempt after count previous
// attempts is over the limit.
func (p Policy) RetriesExhausted(count int) bool {
	return count > p.MaxRetries
}

// Runtime bundles the dependencies that workflow nodes require.
// It is constructed by higher-level composition code from Infrastructure and Domain systems.
type Runtime struct {
	Extractor Extractor
	Inventory Inventory
	Decider   Decider
	Payments  payment.Gateway
	Audit     AuditSink
	Metrics   *metrics.Recorder
	Policy    Policy
	Logger    *slog.Logger

	// Checkpoint, when set, receives the state after every completed step
	// and once more after the run finishes.
	Checkpoint func(ctx context.Context, s InvoiceState) error
}

func (rt *Runtime) checkpoint(ctx context.Context, s InvoiceState) {
	if rt.Checkpoint == nil {
		return
	}
	if err := rt.Checkpoint(ctx, s); err != nil {
		rt.Logger.WarnContext(ctx, "checkpoint failed", "run_id", s.RunID, "error", err)
	}
}

func (rt *Runtime) observe(step Step, start time.Time) {
	rt.Metrics.ObserveStep(string(step), time.Since(start))
}
