package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/DevDizzle/galatiq-invoice-agent/internal/config"
	"github.com/DevDizzle/galatiq-invoice-agent/internal/infrastructure"
)

// Server owns the infrastructure and the HTTP listener for one process.
type Server struct {
	cfg     *config.Config
	infra   *infrastructure.Infrastructure
	modules *Modules
	http    *httpServer
}

func NewServer(cfg *config.Config) (*Server, error) {
	infra, err := infrastructure.New(cfg)
	if err != nil {
		return nil, err
	}

	modules, err := NewModules(infra, cfg)
	if err != nil {
		return nil, err
	}

	router := buildRouter(infra)
	modules.Mount(router)

	return &Server{
		cfg:     cfg,
		infra:   infra,
		modules: modules,
		http:    newHTTPServer(&cfg.Server, router, infra.Logger),
	}, nil
}

// Run starts every subsystem and blocks until SIGINT or SIGTERM, then
// drains background runs and shuts down within the configured timeout.
func (s *Server) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := s.infra.Logger
	logger.Info("invoice service starting",
		"version", s.cfg.Version,
		"env", s.cfg.Env(),
		"addr", s.cfg.Server.Addr(),
		"run_store", s.cfg.Runs.Store,
	)

	if err := s.infra.Start(); err != nil {
		return err
	}
	if err := s.http.Start(s.infra.Lifecycle); err != nil {
		return err
	}

	go func() {
		s.infra.Lifecycle.WaitForStartup()
		logger.Info("all subsystems ready")
	}()

	<-ctx.Done()
	logger.Info("initiating shutdown")

	if err := s.infra.Lifecycle.Shutdown(s.cfg.ShutdownTimeoutDuration()); err != nil {
		return err
	}
	logger.Info("invoice service stopped")
	return nil
}
