package workflow_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/DevDizzle/galatiq-invoice-agent/internal/inventory"
	"github.com/DevDizzle/galatiq-invoice-agent/internal/payment"
	"github.com/DevDizzle/galatiq-invoice-agent/internal/workflow"
)

const (
	goodExtract = `{"vendor":"Widgets Inc.","amount":5000,"date":"2024-01-15",` +
		`"items":[{"item_name":"GadgetX","quantity":5}],"confidence":0.95}`
	approved = `{"status":"APPROVED","reasoning":"Amount below threshold, no issues."}`
)

type reply struct {
	content string
	err     error
}

// scriptedDecider answers extract and approve prompts from separate queues.
// The last reply in a queue repeats.
type scriptedDecider struct {
	mu      sync.Mutex
	extract []reply
	approve []reply
	calls   map[string]int
}

func (d *scriptedDecider) Decide(_ context.Context, prompt string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.calls == nil {
		d.calls = map[string]int{}
	}

	stage, queue := "extract", &d.extract
	if strings.Contains(prompt, `"approval_threshold"`) {
		stage, queue = "approve", &d.approve
	}
	d.calls[stage]++

	if len(*queue) == 0 {
		return "", errors.New("no scripted reply")
	}
	r := (*queue)[0]
	if len(*queue) > 1 {
		*queue = (*queue)[1:]
	}
	return r.content, r.err
}

type staticExtractor struct {
	text string
	err  error
}

func (e staticExtractor) Extract(context.Context, string) (string, error) {
	return e.text, e.err
}

type mapInventory map[string]int

func (m mapInventory) Lookup(_ context.Context, name string) (int, error) {
	if stock, ok := m[name]; ok {
		return stock, nil
	}
	return inventory.NotFound, nil
}

func (m mapInventory) Names(context.Context) ([]string, error) {
	return slices.Sorted(maps.Keys(m)), nil
}

type failingInventory struct{}

func (failingInventory) Lookup(context.Context, string) (int, error) {
	return 0, errors.New("database is locked")
}

func (failingInventory) Names(context.Context) ([]string, error) {
	return nil, errors.New("database is locked")
}

type recordingAudit struct {
	records []workflow.AuditRecord
}

func (a *recordingAudit) Append(v any) error {
	a.records = append(a.records, v.(workflow.AuditRecord))
	return nil
}

type harness struct {
	rt          *workflow.Runtime
	decider     *scriptedDecider
	audit       *recordingAudit
	checkpoints []workflow.InvoiceState
}

func newHarness(extract, approve []reply) *harness {
	h := &harness{
		decider: &scriptedDecider{extract: extract, approve: approve},
		audit:   &recordingAudit{},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h.rt = &workflow.Runtime{
		Extractor: staticExtractor{text: "INVOICE\nVendor: Widgets Inc.\nGadgetX x5\nTotal: $5,000.00"},
		Inventory: mapInventory(inventory.DefaultCatalog()),
		Decider:   h.decider,
		Payments:  payment.NewMock(logger),
		Audit:     h.audit,
		Policy:    workflow.DefaultPolicy(),
		Logger:    logger,
		Checkpoint: func(_ context.Context, s workflow.InvoiceState) error {
			h.checkpoints = append(h.checkpoints, s)
			return nil
		},
	}
	return h
}

func (h *harness) run(t *testing.T) workflow.InvoiceState {
	t.Helper()
	return workflow.Process(context.Background(), h.rt, workflow.NewInvoiceState("data/invoices/invoice_1001.txt"))
}

func agents(s workflow.InvoiceState) []string {
	var out []string
	for _, l := range s.Logs {
		out = append(out, l.Agent)
	}
	return out
}

func TestHappyPath(t *testing.T) {
	h := newHarness([]reply{{content: goodExtract}}, []reply{{content: approved}})
	final := h.run(t)

	if final.ApprovalStatus != workflow.StatusApproved {
		t.Fatalf("ApprovalStatus = %s, want APPROVED (reasoning %q)", final.ApprovalStatus, final.ApprovalReasoning)
	}
	if final.PaymentStatus != "success" {
		t.Errorf("PaymentStatus = %q, want success", final.PaymentStatus)
	}
	if final.TransactionID != payment.MockTransactionID {
		t.Errorf("TransactionID = %q", final.TransactionID)
	}
	if final.RetryCount != 1 {
		t.Errorf("RetryCount = %d, want 1", final.RetryCount)
	}
	if final.ConfidenceScore != 0.95 {
		t.Errorf("ConfidenceScore = %v, want 0.95", final.ConfidenceScore)
	}
	if len(final.ValidationErrors) != 0 {
		t.Errorf("ValidationErrors = %v", final.ValidationErrors)
	}
	if !final.Completed() || !final.Started() {
		t.Error("final state should be started and completed")
	}

	want := []string{workflow.AgentIngestion, workflow.AgentValidation, workflow.AgentApproval, workflow.AgentPayment}
	if got := agents(final); !slices.Equal(got, want) {
		t.Errorf("agents = %v, want %v", got, want)
	}

	validation := final.Logs[1]
	if validation.Decision != "Errors: []" {
		t.Errorf("validation decision = %q", validation.Decision)
	}
	if len(validation.ToolCalls) != 1 || validation.ToolCalls[0].Tool != "query_inventory" {
		t.Errorf("validation tool calls = %+v", validation.ToolCalls)
	}

	if len(h.checkpoints) != 5 {
		t.Errorf("checkpoints = %d, want 5", len(h.checkpoints))
	}
	if len(h.audit.records) != 1 || h.audit.records[0].FinalOutcome != "success" {
		t.Errorf("audit records = %+v", h.audit.records)
	}
}

func TestInsufficientStockSkipsApproval(t *testing.T) {
	h := newHarness([]reply{{content: `{"vendor":"Gadgets Co.","amount":200,"date":"2024-02-01",` +
		`"items":[{"item_name":"ThingZ","quantity":1}]}`}}, nil)
	final := h.run(t)

	if final.ApprovalStatus != workflow.StatusRejected {
		t.Fatalf("ApprovalStatus = %s, want REJECTED", final.ApprovalStatus)
	}
	if !slices.Equal(final.ValidationErrors, []string{"Item ThingZ: Insufficient stock"}) {
		t.Errorf("ValidationErrors = %v", final.ValidationErrors)
	}
	if final.Failure != workflow.FailureInventory {
		t.Errorf("Failure = %q, want inventory", final.Failure)
	}
	if h.decider.calls["approve"] != 0 {
		t.Errorf("approve calls = %d, want 0", h.decider.calls["approve"])
	}
	if final.PaymentStatus != "" {
		t.Errorf("PaymentStatus = %q, want empty", final.PaymentStatus)
	}
	if final.ConfidenceScore != 0.8 {
		t.Errorf("ConfidenceScore = %v, want default 0.8", final.ConfidenceScore)
	}
	if got := len(final.Logs); got != 2 {
		t.Errorf("log entries = %d, want 2", got)
	}
	if got := final.Logs[1].Decision; got != `Errors: ["Item ThingZ: Insufficient stock"]` {
		t.Errorf("validation decision = %q", got)
	}
}

func TestFuzzyMatchAndUnknownItem(t *testing.T) {
	h := newHarness([]reply{{content: `{"vendor":"Widgets Inc.","amount":900,"date":"2024-03-10",` +
		`"items":[{"item_name":"Gadget X","quantity":3},{"item_name":"Unobtainium","quantity":1}]}`}}, nil)
	final := h.run(t)

	if !slices.Equal(final.ValidationErrors, []string{"Item Unobtainium: Not found"}) {
		t.Fatalf("ValidationErrors = %v", final.ValidationErrors)
	}

	calls := final.Logs[1].ToolCalls
	var tools []string
	for _, c := range calls {
		tools = append(tools, c.Tool)
	}
	want := []string{"query_inventory", "fuzzy_query", "query_inventory"}
	if !slices.Equal(tools, want) {
		t.Errorf("tools = %v, want %v", tools, want)
	}
	if calls[1].Input != "GadgetX" || calls[1].Output != 100 {
		t.Errorf("fuzzy call = %+v", calls[1])
	}
}

func TestRetryThenSuccess(t *testing.T) {
	h := newHarness(
		[]reply{{content: "I could not read that invoice."}, {content: goodExtract}},
		[]reply{{content: approved}},
	)
	final := h.run(t)

	if final.RetryCount != 2 {
		t.Errorf("RetryCount = %d, want 2", final.RetryCount)
	}
	if final.PaymentStatus != "success" {
		t.Errorf("PaymentStatus = %q, want success", final.PaymentStatus)
	}

	want := []string{
		workflow.AgentIngestion, workflow.AgentValidation,
		workflow.AgentIngestion, workflow.AgentValidation,
		workflow.AgentApproval, workflow.AgentPayment,
	}
	if got := agents(final); !slices.Equal(got, want) {
		t.Errorf("agents = %v, want %v", got, want)
	}
	if !strings.HasPrefix(final.Logs[1].Decision, "Errors: [\"Data format error: ") {
		t.Errorf("skipped validation decision = %q", final.Logs[1].Decision)
	}
}

func TestRetryExhaustion(t *testing.T) {
	h := newHarness([]reply{{content: "not json"}}, nil)
	final := h.run(t)

	if final.ApprovalStatus != workflow.StatusRejected {
		t.Fatalf("ApprovalStatus = %s, want REJECTED", final.ApprovalStatus)
	}
	if final.ApprovalReasoning != workflow.MsgRetriesExceeded {
		t.Errorf("ApprovalReasoning = %q", final.ApprovalReasoning)
	}
	if !slices.Equal(final.ValidationErrors, []string{workflow.MsgRetriesExceeded}) {
		t.Errorf("ValidationErrors = %v", final.ValidationErrors)
	}
	if final.Failure != workflow.FailureRetryExhausted {
		t.Errorf("Failure = %q", final.Failure)
	}

	maxRetries := workflow.DefaultPolicy().MaxRetries
	if final.RetryCount != maxRetries+1 {
		t.Errorf("RetryCount = %d, want %d", final.RetryCount, maxRetries+1)
	}
	if got := h.decider.calls["extract"]; got != maxRetries+1 {
		t.Errorf("extract calls = %d, want %d", got, maxRetries+1)
	}
	if got := len(final.Logs); got != 2*(maxRetries+2) {
		t.Errorf("log entries = %d, want %d", got, 2*(maxRetries+2))
	}
	if len(h.audit.records) != 1 || h.audit.records[0].FinalOutcome != "REJECTED" {
		t.Errorf("audit records = %+v", h.audit.records)
	}
}

func TestExtractorFailureRetries(t *testing.T) {
	h := newHarness([]reply{{content: goodExtract}}, []reply{{content: approved}})
	h.rt.Extractor = staticExtractor{err: errors.New("unsupported invoice format")}
	final := h.run(t)

	if final.Failure != workflow.FailureRetryExhausted {
		t.Fatalf("Failure = %q, want retry_exhausted", final.Failure)
	}
	if h.decider.calls["extract"] != 0 {
		t.Errorf("decider called %d times without raw text", h.decider.calls["extract"])
	}
	if final.Logs[0].ToolCalls[0].Tool != "extract_text" {
		t.Errorf("first tool call = %+v", final.Logs[0].ToolCalls)
	}
}

func TestHighValueRejected(t *testing.T) {
	h := newHarness(
		[]reply{{content: `{"vendor":"Fraudster LLC","amount":50000,"date":"2024-01-01",` +
			`"items":[{"item_name":"WidgetY","quantity":10}],"confidence":0.9}`}},
		[]reply{{content: "```json\n{\"status\":\"REJECTED\",\"reasoning\":\"Suspiciously round amount from unknown vendor.\"}\n```"}},
	)
	final := h.run(t)

	if final.ApprovalStatus != workflow.StatusRejected {
		t.Fatalf("ApprovalStatus = %s, want REJECTED", final.ApprovalStatus)
	}
	if !strings.Contains(final.ApprovalReasoning, "round amount") {
		t.Errorf("ApprovalReasoning = %q", final.ApprovalReasoning)
	}
	if final.PaymentStatus != "" {
		t.Errorf("PaymentStatus = %q, want empty", final.PaymentStatus)
	}
	if got := len(final.Logs); got != 3 {
		t.Errorf("log entries = %d, want 3", got)
	}
}

func TestApprovalFailureIsSystemError(t *testing.T) {
	tests := []struct {
		name  string
		reply reply
	}{
		{"call error", reply{err: errors.New("connection refused")}},
		{"needs review", reply{content: `{"status":"NEEDS_REVIEW","reasoning":"unsure"}`}},
		{"rejection without reasoning", reply{content: `{"status":"REJECTED","reasoning":""}`}},
		{"rejection with blank reasoning", reply{content: `{"status":"REJECTED","reasoning":"   "}`}},
		{"lowercase status", reply{content: `{"status":"approved","reasoning":"ok"}`}},
		{"padded status", reply{content: `{"status":" APPROVED ","reasoning":"ok"}`}},
		{"not json", reply{content: "approve it"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness([]reply{{content: goodExtract}}, []reply{tt.reply})
			final := h.run(t)

			if final.ApprovalStatus != workflow.StatusRejected {
				t.Fatalf("ApprovalStatus = %s, want REJECTED", final.ApprovalStatus)
			}
			if !strings.HasPrefix(final.ApprovalReasoning, workflow.SystemErrorPrefix+workflow.ErrApproval.Error()) {
				t.Errorf("ApprovalReasoning = %q", final.ApprovalReasoning)
			}
			if strings.Contains(final.ApprovalReasoning, "execution failed") {
				t.Errorf("ApprovalReasoning carries graph context: %q", final.ApprovalReasoning)
			}
			if final.PaymentStatus != "" {
				t.Errorf("PaymentStatus = %q, want empty", final.PaymentStatus)
			}

			want := []string{workflow.AgentIngestion, workflow.AgentValidation, workflow.AgentApproval}
			if got := agents(final); !slices.Equal(got, want) {
				t.Fatalf("agents = %v, want %v", got, want)
			}
			if d := final.Logs[2].Decision; !strings.HasPrefix(d, workflow.FailedPrefix+workflow.ErrApproval.Error()) {
				t.Errorf("failed step decision = %q", d)
			}
			if len(h.audit.records) != 1 {
				t.Errorf("audit records = %d, want 1", len(h.audit.records))
			}
			if !final.Completed() {
				t.Error("failed run should be completed")
			}
		})
	}
}

func TestApprovalReasoningVerbatim(t *testing.T) {
	h := newHarness(
		[]reply{{content: goodExtract}},
		[]reply{{content: `{"status":"APPROVED","reasoning":"  Within threshold.  "}`}},
	)
	final := h.run(t)

	if final.ApprovalStatus != workflow.StatusApproved {
		t.Fatalf("ApprovalStatus = %s, want APPROVED", final.ApprovalStatus)
	}
	if final.ApprovalReasoning != "  Within threshold.  " {
		t.Errorf("ApprovalReasoning = %q", final.ApprovalReasoning)
	}
}

func TestInventoryFailureIsSystemError(t *testing.T) {
	h := newHarness([]reply{{content: goodExtract}}, nil)
	h.rt.Inventory = failingInventory{}
	final := h.run(t)

	if !strings.HasPrefix(final.ApprovalReasoning, workflow.SystemErrorPrefix+workflow.ErrInventory.Error()) {
		t.Fatalf("ApprovalReasoning = %q", final.ApprovalReasoning)
	}
	if !strings.Contains(final.ApprovalReasoning, "database is locked") {
		t.Errorf("ApprovalReasoning = %q", final.ApprovalReasoning)
	}

	want := []string{workflow.AgentIngestion, workflow.AgentValidation}
	if got := agents(final); !slices.Equal(got, want) {
		t.Fatalf("agents = %v, want %v", got, want)
	}
	if d := final.Logs[1].Decision; !strings.HasPrefix(d, workflow.FailedPrefix) {
		t.Errorf("failed step decision = %q", d)
	}
	if len(final.ValidationErrors) != 0 {
		t.Errorf("ValidationErrors = %v, want none from the failed step", final.ValidationErrors)
	}
}

func TestExecuteReturnsStepError(t *testing.T) {
	h := newHarness([]reply{{content: goodExtract}}, []reply{{err: errors.New("timeout")}})

	last, err := workflow.Execute(context.Background(), h.rt, workflow.NewInvoiceState("inv.txt"))
	if !errors.Is(err, workflow.ErrApproval) {
		t.Fatalf("err = %v, want ErrApproval", err)
	}
	if strings.HasPrefix(err.Error(), "execute graph") {
		t.Errorf("err = %q, want the step error", err)
	}

	want := []string{workflow.AgentIngestion, workflow.AgentValidation, workflow.AgentApproval}
	if got := agents(last); !slices.Equal(got, want) {
		t.Errorf("agents = %v, want %v", got, want)
	}
	if last.ApprovalStatus != workflow.StatusPending {
		t.Errorf("ApprovalStatus = %s, want PENDING before Fail", last.ApprovalStatus)
	}
}
