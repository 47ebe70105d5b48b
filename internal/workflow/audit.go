package workflow

import "time"

// AuditRecord is the line appended to the audit log for each finished run.
type AuditRecord struct {
	RunID        string     `json:"run_id"`
	Timestamp    time.Time  `json:"timestamp"`
	Steps        []LogEntry `json:"steps"`
	FinalOutcome string     `json:"final_outcome"`
}

// NewAuditRecord builds the audit record for a finished state.
func NewAuditRecord(s InvoiceState) AuditRecord {
	steps := s.Logs
	if steps == nil {
		steps = []LogEntry{}
	}
	return AuditRecord{
		RunID:        s.RunID,
		Timestamp:    s.Timestamp,
		Steps:        steps,
		FinalOutcome: s.FinalOutcome(),
	}
}
