package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/juan-s-cruz/ai-my-tickets/api"
	"github.com/juan-s-cruz/ai-my-tickets/internal/app"
	"github.com/juan-s-cruz/ai-my-tickets/internal/config"
)

// runServe starts the SSE chat server. The full stack is assembled through
// app.Setup and shut down when the context is cancelled by a signal.
func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.ValidateServe(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	addr, err := parseListenAddr("serve", commandArgs(), cfg.Server.Addr)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := slog.Default()
	logger.Info("starting chat server", "version", Version)

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("closing application", "error", closeErr)
		}
	}()

	server := api.NewServer(a.Sessions, a.Flow, logger.With("component", "api"))
	logger.Info("chat server ready",
		"addr", addr,
		"chat", "POST /api/chat",
		"health", "GET /health, GET /ready")
	return server.Run(ctx, addr)
}
