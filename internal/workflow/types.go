package workflow

import (
	"time"

	"github.com/google/uuid"
)

// KeyInvoiceState is the graph state key holding the InvoiceState.
const KeyInvoiceState = "invoice_state"

// Step names a node in the workflow graph.
type Step string

// Workflow steps.
const (
	StepIngest   Step = "ingest"
	StepValidate Step = "validate"
	StepApprove  Step = "approve"
	StepPay      Step = "pay"
	StepComplete Step = "complete"
)

// Agent names recorded on log entries.
const (
	AgentIngestion  = "IngestionAgent"
	AgentValidation = "ValidationAgent"
	AgentApproval   = "ApprovalAgent"
	AgentPayment    = "PaymentAgent"
)

// Messages written into the state on terminal paths.
const (
	MsgRetriesExceeded = "Max retries exceeded for ingestion."
	DataFormatPrefix   = "Data format error: "
	FailedPrefix       = "Failed: "
	SystemErrorPrefix  = "System Error: "
)

// ApprovalStatus is the approval decision for an invoice.
type ApprovalStatus string

// Approval statuses. NeedsReview is reserved; no step produces it.
const (
	StatusPending     ApprovalStatus = "PENDING"
	StatusApproved    ApprovalStatus = "APPROVED"
	StatusRejected    ApprovalStatus = "REJECTED"
	StatusNeedsReview ApprovalStatus = "NEEDS_REVIEW"
)

// Failure tags the cause of the current validation errors so routing does
// not depend on message text.
type Failure string

// Failure tags.
const (
	FailureNone           Failure = ""
	FailureExtraction     Failure = "extraction"
	FailureSchema         Failure = "schema"
	FailureInventory      Failure = "inventory"
	FailureRetryExhausted Failure = "retry_exhausted"
)

// Retryable reports whether the failure sends the run back to ingest.
func (f Failure) Retryable() bool {
	return f == FailureExtraction || f == FailureSchema
}

// InvoiceItem is a single extracted line item.
type InvoiceItem struct {
	ItemName string `json:"item_name"`
	Quantity int    `json:"quantity"`
}

// ExtractedData is the structured result of ingestion.
type ExtractedData struct {
	Vendor string        `json:"vendor"`
	Amount float64       `json:"amount"`
	Date   string        `json:"date"`
	Items  []InvoiceItem `json:"items"`
}

// ToolCall records one collaborator call made by a step.
type ToolCall struct {
	Tool   string `json:"tool"`
	Input  any    `json:"input"`
	Output any    `json:"output"`
}

// LogEntry records one step execution.
type LogEntry struct {
	Agent        string     `json:"agent"`
	InputSummary string     `json:"input_summary"`
	ToolCalls    []ToolCall `json:"tool_calls"`
	Decision     string     `json:"decision"`
}

// InvoiceState is the single record that flows through the graph.
type InvoiceState struct {
	RunID             string         `json:"run_id"`
	Timestamp         time.Time      `json:"timestamp"`
	InvoiceSource     string         `json:"invoice_source"`
	RawText           string         `json:"raw_text"`
	ExtractedData     ExtractedData  `json:"extracted_data"`
	ValidationErrors  []string       `json:"validation_errors"`
	Failure           Failure        `json:"failure,omitempty"`
	ConfidenceScore   float64        `json:"confidence_score"`
	ApprovalStatus    ApprovalStatus `json:"approval_status"`
	ApprovalReasoning string         `json:"approval_reasoning"`
	PaymentStatus     string         `json:"payment_status"`
	TransactionID     string         `json:"transaction_id,omitempty"`
	Logs              []LogEntry     `json:"logs"`
	RetryCount        int            `json:"retry_count"`
	StartedAt         *time.Time     `json:"started_at,omitempty"`
	CompletedAt       *time.Time     `json:"completed_at,omitempty"`
}

// NewInvoiceState creates the initial state for an invoice source.
func NewInvoiceState(source string) InvoiceState {
	return InvoiceState{
		RunID:            uuid.NewString(),
		Timestamp:        time.Now().UTC(),
		InvoiceSource:    source,
		ExtractedData:    ExtractedData{Items: []InvoiceItem{}},
		ValidationErrors: []string{},
		ApprovalStatus:   StatusPending,
		Logs:             []LogEntry{},
	}
}

// Started reports whether processing has begun.
func (s *InvoiceState) Started() bool {
	return s.StartedAt != nil
}

// Completed reports whether the run reached a terminal state.
func (s *InvoiceState) Completed() bool {
	return s.CompletedAt != nil
}

// FinalOutcome is the payment status when payment ran, otherwise the
// approval status.
func (s *InvoiceState) FinalOutcome() string {
	if s.PaymentStatus != "" {
		return s.PaymentStatus
	}
	return string(s.ApprovalStatus)
}

func (s *InvoiceState) log(agent, input string, calls []ToolCall, decision string) {
	if calls == nil {
		calls = []ToolCall{}
	}
	s.Logs = append(s.Logs, LogEntry{
		Agent:        agent,
		InputSummary: input,
		ToolCalls:    calls,
		Decision:     decision,
	})
}
