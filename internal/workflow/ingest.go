package workflow

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/DevDizzle/galatiq-invoice-agent/internal/prompts"
	"github.com/DevDizzle/galatiq-invoice-agent/pkg/formatting"
)

type extractContext struct {
	RawText       string `json:"raw_text"`
	PreviousError string `json:"previous_error,omitempty"`
}

type itemResponse struct {
	ItemName *string  `json:"item_name"`
	Quantity *float64 `json:"quantity"`
}

type extractResponse struct {
	Vendor     *string         `json:"vendor"`
	Amount     *float64        `json:"amount"`
	Date       *string         `json:"date"`
	Items      *[]itemResponse `json:"items"`
	Confidence *float64        `json:"confidence"`
}

var dateLayouts = []string{time.DateOnly, time.RFC3339}

// Ingest extracts structured data from the invoice source. Extraction and
// schema failures are recorded in the state, never returned: the router
// decides whether to retry. Past Policy.MaxRetries the run is rejected.
func Ingest(ctx context.Context, rt *Runtime, s *InvoiceState) error {
	summary := fmt.Sprintf("Processed %s (attempt %d)", s.InvoiceSource, s.RetryCount+1)

	if rt.Policy.RetriesExhausted(s.RetryCount) {
		s.ValidationErrors = []string{MsgRetriesExceeded}
		s.Failure = FailureRetryExhausted
		s.ApprovalStatus = StatusRejected
		s.ApprovalReasoning = MsgRetriesExceeded
		s.log(AgentIngestion, summary, nil, MsgRetriesExceeded)

		rt.Logger.WarnContext(ctx, "ingest retries exhausted", "run_id", s.RunID, "retry_count", s.RetryCount)
		return nil
	}

	s.RetryCount++
	if s.RetryCount > 1 {
		rt.Metrics.IngestRetry()
	}

	var calls []ToolCall
	data, confidence, err := extract(ctx, rt, s, &calls)
	if err != nil {
		failure := FailureExtraction
		if errors.Is(err, ErrSchema) {
			failure = FailureSchema
		}

		s.ValidationErrors = []string{DataFormatPrefix + err.Error()}
		s.Failure = failure
		s.log(AgentIngestion, summary, calls, "Failed: "+err.Error())

		rt.Logger.WarnContext(ctx, "ingest attempt failed",
			"run_id", s.RunID,
			"attempt", s.RetryCount,
			"failure", failure,
			"error", err,
		)
		return nil
	}

	s.ExtractedData = data
	s.ConfidenceScore = confidence
	s.ValidationErrors = []string{}
	s.Failure = FailureNone
	s.log(AgentIngestion, summary, calls, "Extracted data")

	return nil
}

func extract(ctx context.Context, rt *Runtime, s *InvoiceState, calls *[]ToolCall) (ExtractedData, float64, error) {
	if s.RawText == "" {
		text, err := rt.Extractor.Extract(ctx, s.InvoiceSource)
		if err != nil {
			*calls = append(*calls, ToolCall{Tool: "extract_text", Input: s.InvoiceSource, Output: err.Error()})
			return ExtractedData{}, 0, fmt.Errorf("%w: %w", ErrExtraction, err)
		}
		*calls = append(*calls, ToolCall{Tool: "extract_text", Input: s.InvoiceSource, Output: len(text)})
		s.RawText = text
	}

	var previous string
	if n := len(s.ValidationErrors); n > 0 {
		previous = s.ValidationErrors[n-1]
	}

	prompt, err := ComposePrompt(prompts.StageExtract, extractContext{
		RawText:       s.RawText,
		PreviousError: previous,
	})
	if err != nil {
		return ExtractedData{}, 0, fmt.Errorf("%w: %w", ErrExtraction, err)
	}

	content, err := rt.Decider.Decide(ctx, prompt)
	if err != nil {
		return ExtractedData{}, 0, fmt.Errorf("%w: decision call: %w", ErrExtraction, err)
	}

	parsed, err := formatting.Parse[extractResponse](content)
	if err != nil {
		return ExtractedData{}, 0, fmt.Errorf("%w: %w", ErrSchema, err)
	}

	return parsed.toExtracted(rt.Policy.DefaultConfidence)
}

func (r extractResponse) toExtracted(defaultConfidence float64) (ExtractedData, float64, error) {
	var missing []string
	if r.Vendor == nil {
		missing = append(missing, "vendor")
	}
	if r.Amount == nil {
		missing = append(missing, "amount")
	}
	if r.Date == nil {
		missing = append(missing, "date")
	}
	if r.Items == nil {
		missing = append(missing, "items")
	}
	if len(missing) > 0 {
		return ExtractedData{}, 0, fmt.Errorf("%w: missing %s", ErrSchema, strings.Join(missing, ", "))
	}

	vendor := strings.TrimSpace(*r.Vendor)
	if vendor == "" {
		return ExtractedData{}, 0, fmt.Errorf("%w: vendor is empty", ErrSchema)
	}
	if *r.Amount < 0 || math.IsNaN(*r.Amount) {
		return ExtractedData{}, 0, fmt.Errorf("%w: amount %v is negative", ErrSchema, *r.Amount)
	}
	if !validDate(*r.Date) {
		return ExtractedData{}, 0, fmt.Errorf("%w: date %q is not ISO-8601", ErrSchema, *r.Date)
	}

	items := make([]InvoiceItem, 0, len(*r.Items))
	for i, it := range *r.Items {
		if it.ItemName == nil || strings.TrimSpace(*it.ItemName) == "" {
			return ExtractedData{}, 0, fmt.Errorf("%w: item %d has no item_name", ErrSchema, i)
		}
		if it.Quantity == nil {
			return ExtractedData{}, 0, fmt.Errorf("%w: item %q has no quantity", ErrSchema, *it.ItemName)
		}
		q := *it.Quantity
		if q < 0 || q != math.Trunc(q) || q > math.MaxInt32 {
			return ExtractedData{}, 0, fmt.Errorf("%w: quantity %v for %q is not a non-negative integer", ErrSchema, q, *it.ItemName)
		}
		items = append(items, InvoiceItem{ItemName: *it.ItemName, Quantity: int(q)})
	}

	confidence := defaultConfidence
	if r.Confidence != nil {
		confidence = min(max(*r.Confidence, 0), 1)
	}

	return ExtractedData{
		Vendor: vendor,
		Amount: *r.Amount,
		Date:   *r.Date,
		Items:  items,
	}, confidence, nil
}

func validDate(s string) bool {
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}
