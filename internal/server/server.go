// Package server exposes the orchestrator over HTTP for serve mode.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/rs/cors"

	"github.com/valpere/perekod/internal/config"
	"github.com/valpere/perekod/internal/orchestrator"
)

// Server wraps the HTTP listener and lifecycle helpers.
type Server struct {
	cfg      config.ServerConfig
	httpSrv  *http.Server
	listener net.Listener
}

// New constructs an HTTP server bound to the configured address.
func New(cfg config.ServerConfig, orch *orchestrator.Orchestrator, logger *slog.Logger) (*Server, error) {
	lis, err := net.Listen("tcp", cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", cfg.Address, err)
	}

	h := newHandler(orch, logger)

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})

	httpSrv := &http.Server{
		Handler:     c.Handler(h.routes()),
		ReadTimeout: 30 * time.Second,
		// Translations may legitimately run for minutes; the write timeout
		// must outlast the orchestrator's own per-request ceiling.
		WriteTimeout: 10 * time.Minute,
	}

	return &Server{
		cfg:      cfg,
		httpSrv:  httpSrv,
		listener: lis,
	}, nil
}

// Start serves incoming requests until Shutdown is invoked.
func (s *Server) Start() error {
	return s.httpSrv.Serve(s.listener)
}

// Shutdown drains in-flight requests until the context expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// Address exposes the bound listener address (useful for tests).
func (s *Server) Address() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// GracefulTimeout returns the configured graceful timeout duration.
func (s *Server) GracefulTimeout() time.Duration {
	return s.cfg.GracefulTimeout
}
