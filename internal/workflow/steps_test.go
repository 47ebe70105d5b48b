package workflow_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"slices"
	"strings"
	"testing"

	"github.com/DevDizzle/galatiq-invoice-agent/internal/inventory"
	"github.com/DevDizzle/galatiq-invoice-agent/internal/payment"
	"github.com/DevDizzle/galatiq-invoice-agent/internal/prompts"
	"github.com/DevDizzle/galatiq-invoice-agent/internal/workflow"
)

func testRuntime() *workflow.Runtime {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &workflow.Runtime{
		Inventory: mapInventory(inventory.DefaultCatalog()),
		Payments:  payment.NewMock(logger),
		Policy:    workflow.DefaultPolicy(),
		Logger:    logger,
	}
}

func TestRetriesExhausted(t *testing.T) {
	p := workflow.DefaultPolicy()
	for count := range p.MaxRetries + 1 {
		if p.RetriesExhausted(count) {
			t.Errorf("RetriesExhausted(%d) = true", count)
		}
	}
	if !p.RetriesExhausted(p.MaxRetries + 1) {
		t.Errorf("RetriesExhausted(%d) = false", p.MaxRetries+1)
	}
}

func TestAfterValidate(t *testing.T) {
	tests := []struct {
		name    string
		errors  []string
		failure workflow.Failure
		want    workflow.Step
	}{
		{"clean", []string{}, workflow.FailureNone, workflow.StepApprove},
		{"extraction", []string{"Data format error: x"}, workflow.FailureExtraction, workflow.StepIngest},
		{"schema", []string{"Data format error: x"}, workflow.FailureSchema, workflow.StepIngest},
		{"inventory", []string{"Item A: Not found"}, workflow.FailureInventory, workflow.StepComplete},
		{"exhausted", []string{workflow.MsgRetriesExceeded}, workflow.FailureRetryExhausted, workflow.StepComplete},
		{"untagged", []string{"legacy"}, workflow.FailureNone, workflow.StepComplete},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := workflow.InvoiceState{ValidationErrors: tt.errors, Failure: tt.failure}
			if got := workflow.AfterValidate(s); got != tt.want {
				t.Errorf("AfterValidate() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestAfterApprove(t *testing.T) {
	for status, want := range map[workflow.ApprovalStatus]workflow.Step{
		workflow.StatusApproved:    workflow.StepPay,
		workflow.StatusRejected:    workflow.StepComplete,
		workflow.StatusPending:     workflow.StepComplete,
		workflow.StatusNeedsReview: workflow.StepComplete,
	} {
		if got := workflow.AfterApprove(workflow.InvoiceState{ApprovalStatus: status}); got != want {
			t.Errorf("AfterApprove(%s) = %s, want %s", status, got, want)
		}
	}
}

func TestValidateIdempotent(t *testing.T) {
	rt := testRuntime()
	s := workflow.NewInvoiceState("inv.txt")
	s.ExtractedData.Items = []workflow.InvoiceItem{
		{ItemName: "WidgetY", Quantity: 60},
		{ItemName: "GadgetX", Quantity: 1},
	}

	first := s
	if err := workflow.Validate(context.Background(), rt, &first); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	second := s
	if err := workflow.Validate(context.Background(), rt, &second); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if !slices.Equal(first.ValidationErrors, second.ValidationErrors) {
		t.Errorf("errors differ: %v vs %v", first.ValidationErrors, second.ValidationErrors)
	}
	if !slices.Equal(first.ValidationErrors, []string{"Item WidgetY: Insufficient stock"}) {
		t.Errorf("ValidationErrors = %v", first.ValidationErrors)
	}
}

func TestValidateEmptyItems(t *testing.T) {
	rt := testRuntime()
	s := workflow.NewInvoiceState("inv.txt")

	if err := workflow.Validate(context.Background(), rt, &s); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if len(s.ValidationErrors) != 0 {
		t.Errorf("ValidationErrors = %v, want none", s.ValidationErrors)
	}
	if workflow.AfterValidate(s) != workflow.StepApprove {
		t.Error("empty invoice should proceed to approval")
	}
}

func TestValidateSkipsPendingErrors(t *testing.T) {
	rt := testRuntime()
	s := workflow.NewInvoiceState("inv.txt")
	s.ValidationErrors = []string{"Data format error: bad"}
	s.Failure = workflow.FailureSchema

	if err := workflow.Validate(context.Background(), rt, &s); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !slices.Equal(s.ValidationErrors, []string{"Data format error: bad"}) {
		t.Errorf("ValidationErrors changed: %v", s.ValidationErrors)
	}
	if s.Failure != workflow.FailureSchema {
		t.Errorf("Failure changed: %s", s.Failure)
	}
	if len(s.Logs) != 1 || len(s.Logs[0].ToolCalls) != 0 {
		t.Errorf("Logs = %+v", s.Logs)
	}
}

func TestApproveWithErrorsRejects(t *testing.T) {
	rt := testRuntime()
	s := workflow.NewInvoiceState("inv.txt")
	s.ValidationErrors = []string{"Item A: Not found"}

	if err := workflow.Approve(context.Background(), rt, &s); err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	if s.ApprovalStatus != workflow.StatusRejected || s.ApprovalReasoning != "Validation errors present" {
		t.Errorf("status = %s, reasoning = %q", s.ApprovalStatus, s.ApprovalReasoning)
	}
}

func TestPaySkipsUnapproved(t *testing.T) {
	rt := testRuntime()
	s := workflow.NewInvoiceState("inv.txt")
	s.ApprovalStatus = workflow.StatusRejected

	if err := workflow.Pay(context.Background(), rt, &s); err != nil {
		t.Fatalf("Pay() error = %v", err)
	}
	if s.PaymentStatus != "" {
		t.Errorf("PaymentStatus = %q, want empty", s.PaymentStatus)
	}
	if len(s.Logs) != 1 || s.Logs[0].Decision != "No payment" {
		t.Errorf("Logs = %+v", s.Logs)
	}
}

func TestIngestSchemaFailures(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing vendor", `{"amount":1,"date":"2024-01-01","items":[]}`},
		{"negative amount", `{"vendor":"A","amount":-1,"date":"2024-01-01","items":[]}`},
		{"bad date", `{"vendor":"A","amount":1,"date":"January 5th","items":[]}`},
		{"fractional quantity", `{"vendor":"A","amount":1,"date":"2024-01-01","items":[{"item_name":"GadgetX","quantity":2.5}]}`},
		{"missing item name", `{"vendor":"A","amount":1,"date":"2024-01-01","items":[{"quantity":2}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := testRuntime()
			rt.Extractor = staticExtractor{text: "raw"}
			rt.Decider = &scriptedDecider{extract: []reply{{content: tt.content}}}

			s := workflow.NewInvoiceState("inv.txt")
			if err := workflow.Ingest(context.Background(), rt, &s); err != nil {
				t.Fatalf("Ingest() error = %v", err)
			}
			if s.Failure != workflow.FailureSchema {
				t.Errorf("Failure = %q, want schema", s.Failure)
			}
			if s.RetryCount != 1 {
				t.Errorf("RetryCount = %d, want 1", s.RetryCount)
			}
			if s.RawText != "raw" {
				t.Errorf("RawText = %q, want cached raw text", s.RawText)
			}
		})
	}
}

func TestIngestClampsConfidence(t *testing.T) {
	rt := testRuntime()
	rt.Extractor = staticExtractor{text: "raw"}
	rt.Decider = &scriptedDecider{extract: []reply{{
		content: `{"vendor":"A","amount":1,"date":"2024-01-01T10:00:00Z","items":[],"confidence":1.7}`,
	}}}

	s := workflow.NewInvoiceState("inv.txt")
	if err := workflow.Ingest(context.Background(), rt, &s); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if s.Failure != workflow.FailureNone {
		t.Fatalf("Failure = %q, errors %v", s.Failure, s.ValidationErrors)
	}
	if s.ConfidenceScore != 1 {
		t.Errorf("ConfidenceScore = %v, want 1", s.ConfidenceScore)
	}
}

func TestComposePrompt(t *testing.T) {
	prompt, err := workflow.ComposePrompt(prompts.StageExtract, map[string]string{"raw_text": "INVOICE 42"})
	if err != nil {
		t.Fatalf("ComposePrompt() error = %v", err)
	}
	for _, want := range []string{"data entry", `"vendor"`, "INVOICE 42"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	if _, err := workflow.ComposePrompt("pay", nil); err == nil {
		t.Error("expected error for unknown stage")
	}
}

func TestAuditRecord(t *testing.T) {
	s := workflow.NewInvoiceState("inv.txt")
	s.ApprovalStatus = workflow.StatusRejected

	rec := workflow.NewAuditRecord(s)
	if rec.RunID != s.RunID || rec.FinalOutcome != "REJECTED" {
		t.Errorf("record = %+v", rec)
	}

	s.PaymentStatus = "success"
	if got := workflow.NewAuditRecord(s).FinalOutcome; got != "success" {
		t.Errorf("FinalOutcome = %q, want success", got)
	}
}

func TestToolCallAlwaysCarriesInput(t *testing.T) {
	data, err := json.Marshal(workflow.ToolCall{Tool: "mock_payment", Output: "success"})
	if err != nil {
		t.Fatal(err)
	}
	if want := `{"tool":"mock_payment","input":null,"output":"success"}`; string(data) != want {
		t.Errorf("json = %s, want %s", data, want)
	}
}
