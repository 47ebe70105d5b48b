package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/DevDizzle/galatiq-invoice-agent/internal/runs"
	"github.com/DevDizzle/galatiq-invoice-agent/internal/workflow"
)

type fakeRuns struct {
	mu        sync.Mutex
	submitted map[string]string
}

func (f *fakeRuns) Handler(int64) *runs.Handler { return nil }

func (f *fakeRuns) Submit(_ context.Context, cmd runs.SubmitCommand) (*runs.Submission, error) {
	if strings.HasSuffix(cmd.Filename, ".exe") {
		return nil, runs.ErrInvalidFile
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitted == nil {
		f.submitted = map[string]string{}
	}
	id := "run-" + cmd.Filename
	f.submitted[id] = string(cmd.Data)
	return &runs.Submission{RunID: id, Filename: cmd.Filename}, nil
}

func (f *fakeRuns) Process(context.Context, string) error {
	return errors.New("not used")
}

func (f *fakeRuns) Run(_ context.Context, id string) (*workflow.InvoiceState, error) {
	state := workflow.NewInvoiceState(id)
	state.RunID = id
	state.ApprovalStatus = workflow.StatusApproved
	state.PaymentStatus = "success"
	return &state, nil
}

func (f *fakeRuns) Find(context.Context, string) (*workflow.InvoiceState, error) {
	return nil, runs.ErrNotFound
}

func TestProcessAll(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "invoice_1001.txt")
	bad := filepath.Join(dir, "invoice.exe")
	for _, p := range []string{good, bad} {
		if err := os.WriteFile(p, []byte("INVOICE"), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	missing := filepath.Join(dir, "missing.txt")

	var out bytes.Buffer
	failed := processAll(context.Background(), &fakeRuns{}, []string{good, bad, missing}, 2, &out)

	if !failed {
		t.Error("expected failure for unsupported and missing files")
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want 3:\n%s", len(lines), out.String())
	}
	if !strings.Contains(lines[0], "final status: success") {
		t.Errorf("line 0 = %q", lines[0])
	}
	if !strings.Contains(lines[1], "invalid file") {
		t.Errorf("line 1 = %q", lines[1])
	}
	if !strings.Contains(lines[2], "workflow execution failed") {
		t.Errorf("line 2 = %q", lines[2])
	}
}

func TestPathsFlag(t *testing.T) {
	var p paths
	p.Set("a.txt")
	p.Set("b.pdf")
	if len(p) != 2 || p[1] != "b.pdf" {
		t.Errorf("paths = %v", p)
	}
}
