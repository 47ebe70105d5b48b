package runs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"golang.org/x/sync/semaphore"

	"github.com/DevDizzle/galatiq-invoice-agent/internal/extraction"
	"github.com/DevDizzle/galatiq-invoice-agent/internal/workflow"
	"github.com/DevDizzle/galatiq-invoice-agent/pkg/lifecycle"
	"github.com/DevDizzle/galatiq-invoice-agent/pkg/storage"
	"github.com/DevDizzle/galatiq-invoice-agent/pkg/store"
)

type repo struct {
	store   store.Store[workflow.InvoiceState]
	storage storage.System
	runtime workflow.Runtime
	lc      *lifecycle.Coordinator
	workers *semaphore.Weighted
	logger  *slog.Logger
}

// New creates a run repository implementing the System interface. rt is
// copied per run with its Checkpoint bound to the store. workers bounds
// how many runs execute at once.
func New(
	states store.Store[workflow.InvoiceState],
	blobs storage.System,
	rt workflow.Runtime,
	lc *lifecycle.Coordinator,
	workers int,
	logger *slog.Logger,
) System {
	return &repo{
		store:   states,
		storage: blobs,
		runtime: rt,
		lc:      lc,
		workers: semaphore.NewWeighted(int64(max(workers, 1))),
		logger:  logger.With("system", "runs"),
	}
}

func (r *repo) Handler(maxUploadSize int64) *Handler {
	return NewHandler(r, r.logger, maxUploadSize)
}

func (r *repo) Submit(ctx context.Context, cmd SubmitCommand) (*Submission, error) {
	filename, err := sanitizeFilename(cmd.Filename)
	if err != nil {
		return nil, err
	}
	kind, err := extraction.KindOf(filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}
	if len(cmd.Data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrInvalidFile)
	}

	var pageCount *int
	if kind == extraction.KindPDF {
		count, err := api.PageCount(bytes.NewReader(cmd.Data), nil)
		if err != nil {
			return nil, fmt.Errorf("%w: read pdf: %w", ErrInvalidFile, err)
		}
		pageCount = &count
	}

	state := workflow.NewInvoiceState("")
	key := buildStorageKey(state.RunID, filename)
	state.InvoiceSource = key

	if err := r.storage.Upload(ctx, key, bytes.NewReader(cmd.Data), cmd.ContentType); err != nil {
		return nil, fmt.Errorf("upload invoice blob: %w", err)
	}

	if err := r.store.Put(ctx, state.RunID, state); err != nil {
		if delErr := r.storage.Delete(ctx, key); delErr != nil {
			r.logger.Warn("compensating blob delete failed", "key", key, "error", delErr)
		}
		return nil, fmt.Errorf("store run: %w", err)
	}

	r.logger.Info("run submitted", "run_id", state.RunID, "filename", filename)

	return &Submission{
		RunID:       state.RunID,
		Filename:    filename,
		ContentType: cmd.ContentType,
		SizeBytes:   int64(len(cmd.Data)),
		PageCount:   pageCount,
		StorageKey:  key,
	}, nil
}

func (r *repo) Process(ctx context.Context, id string) error {
	state, err := r.claim(ctx, id)
	if err != nil {
		return err
	}

	r.lc.Go(func(ctx context.Context) {
		r.execute(ctx, state)
	})

	r.logger.Info("run queued", "run_id", id)
	return nil
}

func (r *repo) Run(ctx context.Context, id string) (*workflow.InvoiceState, error) {
	state, err := r.claim(ctx, id)
	if err != nil {
		return nil, err
	}

	final := r.execute(ctx, state)
	return &final, nil
}

func (r *repo) Find(ctx context.Context, id string) (*workflow.InvoiceState, error) {
	state, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return &state, nil
}

// claim marks a pending run as started so it is processed once.
func (r *repo) claim(ctx context.Context, id string) (workflow.InvoiceState, error) {
	state, err := r.store.Update(ctx, id, func(s workflow.InvoiceState) (workflow.InvoiceState, error) {
		if s.Started() {
			return s, ErrAlreadyQueued
		}
		now := time.Now().UTC()
		s.StartedAt = &now
		return s, nil
	})
	if err != nil {
		return workflow.InvoiceState{}, mapStoreError(err)
	}
	return state, nil
}

func (r *repo) execute(ctx context.Context, state workflow.InvoiceState) workflow.InvoiceState {
	if err := r.workers.Acquire(ctx, 1); err != nil {
		final := workflow.Fail(state, err)
		now := time.Now().UTC()
		final.CompletedAt = &now
		r.checkpoint(ctx, final)
		return final
	}
	defer r.workers.Release(1)

	rt := r.runtime
	rt.Checkpoint = func(ctx context.Context, s workflow.InvoiceState) error {
		return r.store.Put(ctx, s.RunID, s)
	}

	return workflow.Process(ctx, &rt, state)
}

func (r *repo) checkpoint(ctx context.Context, s workflow.InvoiceState) {
	if err := r.store.Put(ctx, s.RunID, s); err != nil {
		r.logger.Error("store run failed", "run_id", s.RunID, "error", err)
	}
}

func mapStoreError(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func buildStorageKey(id, filename string) string {
	return fmt.Sprintf("invoices/%s/%s", id, filename)
}

func sanitizeFilename(name string) (string, error) {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	if name == "." || name == "/" || name == "" || strings.Contains(name, "..") {
		return "", fmt.Errorf("%w: filename %q", ErrInvalidFile, name)
	}
	return url.PathEscape(name), nil
}
