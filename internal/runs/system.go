package runs

import (
	"context"

	"github.com/DevDizzle/galatiq-invoice-agent/internal/workflow"
)

// System defines the public contract for run domain operations.
type System interface {
	Handler(maxUploadSize int64) *Handler

	// Submit uploads the invoice and stores a pending state for it.
	Submit(ctx context.Context, cmd SubmitCommand) (*Submission, error)
	// Process starts the workflow for a pending run in the background.
	Process(ctx context.Context, id string) error
	// Run executes the workflow for a pending run and waits for the result.
	Run(ctx context.Context, id string) (*workflow.InvoiceState, error)
	// Find returns the latest state snapshot.
	Find(ctx context.Context, id string) (*workflow.InvoiceState, error)
}
