// Command invoice runs the invoice workflow over local files and prints the
// final outcome of each run.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"mime"
	"os"
	"path/filepath"
	"sync"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/DevDizzle/galatiq-invoice-agent/internal/api"
	"github.com/DevDizzle/galatiq-invoice-agent/internal/config"
	"github.com/DevDizzle/galatiq-invoice-agent/internal/infrastructure"
	"github.com/DevDizzle/galatiq-invoice-agent/internal/runs"
	"github.com/DevDizzle/galatiq-invoice-agent/internal/workflow"
)

type paths []string

func (p *paths) String() string { return fmt.Sprint(*p) }

func (p *paths) Set(v string) error {
	*p = append(*p, v)
	return nil
}

func main() {
	var files paths
	flag.Var(&files, "invoice_path", "Invoice file to process (repeatable)")
	flag.Parse()
	files = append(files, flag.Args()...)

	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "usage: invoice -invoice_path <file> [-invoice_path <file>...] [file...]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Fatal("env file load failed:", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config load failed:", err)
	}

	infra, err := infrastructure.New(cfg)
	if err != nil {
		log.Fatal("infrastructure init failed:", err)
	}
	if err := infra.Start(); err != nil {
		log.Fatal("infrastructure start failed:", err)
	}
	infra.Lifecycle.WaitForStartup()

	domain, err := api.NewDomain(cfg, api.NewRuntime(cfg, infra))
	if err != nil {
		log.Fatal("domain init failed:", err)
	}

	failed := processAll(infra.Lifecycle.Context(), domain.Runs, files, cfg.Runs.ProcessWorkers, os.Stdout)

	if err := infra.Lifecycle.Shutdown(cfg.ShutdownTimeoutDuration()); err != nil {
		infra.Logger.Error("shutdown failed", "error", err)
	}
	if failed {
		os.Exit(1)
	}
}

// processAll submits and runs every file, writing one result line per file
// in input order. It reports whether any file could not be processed.
func processAll(ctx context.Context, sys runs.System, files []string, workers int, out io.Writer) bool {
	results := make([]string, len(files))
	var mu sync.Mutex
	failed := false

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))

	for i, path := range files {
		g.Go(func() error {
			state, err := processFile(ctx, sys, path)
			if err != nil {
				mu.Lock()
				failed = true
				mu.Unlock()
				results[i] = fmt.Sprintf("%s: workflow execution failed: %v", path, err)
				return nil
			}
			results[i] = fmt.Sprintf("%s: run %s final status: %s (%s)",
				path, state.RunID, state.FinalOutcome(), state.ApprovalReasoning)
			return nil
		})
	}
	g.Wait()

	for _, line := range results {
		fmt.Fprintln(out, line)
	}
	return failed
}

func processFile(ctx context.Context, sys runs.System, path string) (*workflow.InvoiceState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	sub, err := sys.Submit(ctx, runs.SubmitCommand{
		Data:        data,
		Filename:    filepath.Base(path),
		ContentType: mime.TypeByExtension(filepath.Ext(path)),
	})
	if err != nil {
		return nil, err
	}

	return sys.Run(ctx, sub.RunID)
}
