// Package api provides the HTTP surface of the support agent.
//
// Endpoints:
//
//	POST   /api/chat                    → SSE stream of the agent's answer
//	GET    /api/sessions                → list sessions
//	POST   /api/sessions                → create session
//	GET    /api/sessions/{id}/messages  → conversation history
//	DELETE /api/sessions/{id}           → delete session
//	GET    /health                      → liveness probe
//	GET    /ready                       → readiness probe
//
// File structure:
//   - server.go: HTTP server setup and lifecycle
//   - middleware.go: HTTP middleware (logging, recovery)
//   - chat.go: SSE chat endpoint backed by the agent flow
//   - session.go: session management endpoints
//   - health.go: health check endpoints
//   - response.go: JSON response helpers
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/juan-s-cruz/ai-my-tickets/internal/agent"
	"github.com/juan-s-cruz/ai-my-tickets/internal/log"
	"github.com/juan-s-cruz/ai-my-tickets/internal/session"
)

const (
	// DefaultAddr is the default listen address for the HTTP server.
	DefaultAddr = "127.0.0.1:8100"

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout guards against clients that stall mid-headers.
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 30 * time.Second

	// WriteTimeout is generous because chat responses stream while the
	// agent works through its tool calls and retries.
	WriteTimeout = 5 * time.Minute

	// IdleTimeout is the keep-alive idle bound.
	IdleTimeout = 120 * time.Second
)

// Server is the HTTP server for the support agent API.
type Server struct {
	mux    *http.ServeMux
	logger log.Logger

	health  *HealthHandler
	session *SessionHandler
	chat    *ChatHandler
}

// NewServer creates a server with all routes registered. The flow comes
// from [agent.Agent.DefineFlow].
func NewServer(store *session.Store, flow *agent.Flow, logger log.Logger) *Server {
	if logger == nil {
		logger = log.NewNop()
	}

	mux := http.NewServeMux()
	s := &Server{
		mux:     mux,
		logger:  logger,
		health:  NewHealthHandler(store, flow, logger),
		session: NewSessionHandler(store, logger),
		chat:    NewChatHandler(flow, store, logger),
	}

	s.health.RegisterRoutes(mux)
	s.session.RegisterRoutes(mux)
	s.chat.RegisterRoutes(mux)

	return s
}

// Handler returns the HTTP handler with middleware applied.
// Middleware order: recovery → logging → handler.
func (s *Server) Handler() http.Handler {
	return chain(s.mux,
		recoveryMiddleware(s.logger),
		loggingMiddleware(s.logger),
	)
}

// Run starts the HTTP server and blocks until the context is cancelled,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
