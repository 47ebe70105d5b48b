// Package workflow runs the invoice state graph:
// ingest → validate → (ingest | approve | complete), approve → (pay | complete),
// pay → complete. Steps record their decisions in the InvoiceState log and
// route on the state alone.
package workflow

import "errors"

// Sentinel errors for workflow operations. ErrExtraction and ErrSchema are
// captured into the state by the ingest step; the rest abort the run.
var (
	ErrExtraction   = errors.New("extraction failed")
	ErrSchema       = errors.New("response does not match schema")
	ErrInventory    = errors.New("inventory lookup failed")
	ErrApproval     = errors.New("approval failed")
	ErrPayment      = errors.New("payment failed")
	ErrMissingState = errors.New("invoice state missing from graph state")
)
