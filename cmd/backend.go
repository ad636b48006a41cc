package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/juan-s-cruz/ai-my-tickets/internal/config"
	"github.com/juan-s-cruz/ai-my-tickets/internal/log"
	"github.com/juan-s-cruz/ai-my-tickets/internal/ticketsim"
)

// runBackend starts the local ticket backend simulator: the same REST
// contract, latency, and failure injection the agent's client is built to
// ride out.
func runBackend() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	addr, err := parseListenAddr("backend", commandArgs(), cfg.Simulator.Addr)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := slog.Default()
	handler, err := buildSimulator(cfg.Simulator, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("ticket backend simulator ready",
		"addr", addr,
		"failure_rate", cfg.Simulator.FailureRate,
		"latency_min", cfg.Simulator.LatencyMin,
		"latency_max", cfg.Simulator.LatencyMax)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down simulator")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("simulator server: %w", err)
	}
}

// buildSimulator assembles the seeded store, the REST handler, and the
// disruption wrapper into one http.Handler.
func buildSimulator(cfg config.SimulatorConfig, logger log.Logger) (http.Handler, error) {
	store := ticketsim.NewStore()
	store.SeedDemo()

	handler, err := ticketsim.NewHandler(ticketsim.Config{
		Store:  store,
		Logger: logger.With("component", "ticketsim"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating simulator: %w", err)
	}

	disruption := ticketsim.NewDisruption(ticketsim.DisruptionConfig{
		FailureRate: cfg.FailureRate,
		MinLatency:  cfg.LatencyMin,
		MaxLatency:  cfg.LatencyMax,
		Seed:        uint64(cfg.Seed),
		Logger:      logger.With("component", "ticketsim"),
	})
	return disruption.Wrap(handler), nil
}
