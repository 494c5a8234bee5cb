// Package api serves the read-only LAN status endpoints. Observation
// only: nothing here mutates control state, and the control loop runs
// identically with the server disabled.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spriggler/sprig-core/internal/daemon"
	"github.com/spriggler/sprig-core/internal/event"
	"github.com/spriggler/sprig-core/internal/infrastructure/config"
)

// Logger is the minimal logging interface the server depends on.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// EventSource provides recent journal entries for the events endpoint.
type EventSource interface {
	Recent(ctx context.Context, limit int) ([]event.Event, error)
}

// Deps carries the server's dependencies.
type Deps struct {
	Daemon  *daemon.Daemon
	Events  EventSource
	Logger  Logger
	Version string
}

// Server is the status HTTP server.
type Server struct {
	httpServer *http.Server
	logger     Logger
}

// New creates a Server bound per configuration.
func New(cfg config.APIConfig, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = noopLogger{}
	}

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:      newRouter(deps),
			ReadTimeout:  cfg.GetReadTimeout(),
			WriteTimeout: cfg.GetWriteTimeout(),
			IdleTimeout:  cfg.GetIdleTimeout(),
		},
		logger: deps.Logger,
	}
}

// Start serves until the listener closes. It blocks; run it in its own
// goroutine.
func (s *Server) Start() error {
	s.logger.Info("api server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

// Close shuts the server down gracefully.
func (s *Server) Close(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}
