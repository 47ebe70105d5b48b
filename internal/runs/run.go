// Package runs implements the submission domain: invoice upload to blob
// storage, background workflow processing, and state snapshots.
package runs

// Submission describes an uploaded invoice awaiting processing.
type Submission struct {
	RunID       string `json:"run_id"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
	PageCount   *int   `json:"page_count,omitempty"`
	StorageKey  string `json:"storage_key"`
}

// SubmitCommand carries an uploaded invoice.
type SubmitCommand struct {
	Data        []byte
	Filename    string
	ContentType string
}

// ProcessResponse acknowledges a queued run.
type ProcessResponse struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`
}
