package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/firebase/genkit/go/core/tracing"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/juan-s-cruz/ai-my-tickets/internal/agent"
	"github.com/juan-s-cruz/ai-my-tickets/internal/config"
	"github.com/juan-s-cruz/ai-my-tickets/internal/log"
	"github.com/juan-s-cruz/ai-my-tickets/internal/session"
	"github.com/juan-s-cruz/ai-my-tickets/internal/ticketing"
	"github.com/juan-s-cruz/ai-my-tickets/internal/tools"
)

// Setup creates and wires the application. The returned App embeds its
// cleanup; call Close to release. On error everything already initialized
// is torn down before returning.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	if cfg == nil {
		return nil, config.ErrConfigNil
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{Config: cfg, Logger: logger}

	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	// Tracing first: Genkit reads the TracerProvider during Init.
	a.otelCleanup = provideTracing(ctx, cfg, logger)

	g, err := provideGenkit(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	client, err := NewTicketClient(cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Tickets = client

	handler, err := tools.NewHandler(client, logger.With("component", "tools"))
	if err != nil {
		return nil, fmt.Errorf("creating ticket tools: %w", err)
	}
	if err := tools.Register(g, handler); err != nil {
		return nil, fmt.Errorf("registering ticket tools: %w", err)
	}
	a.Tools = handler

	a.Sessions = session.NewStore(cfg.MaxHistoryMessages, logger.With("component", "session"))

	ag, err := agent.New(agent.Config{
		Genkit:    g,
		Sessions:  a.Sessions,
		Logger:    logger.With("component", "agent"),
		Tools:     tools.Refs(g),
		ModelName: cfg.FullModelName(),
		MaxTurns:  cfg.MaxTurns,
	})
	if err != nil {
		return nil, fmt.Errorf("creating agent: %w", err)
	}
	a.Agent = ag
	a.Flow = ag.DefineFlow(g)

	logger.Info("application assembled",
		"model", cfg.FullModelName(),
		"ticket_api", cfg.TicketAPI.BaseURL,
		"max_attempts", cfg.TicketAPI.MaxAttempts)
	return a, nil
}

// provideTracing sets up OTLP trace export when an endpoint is configured.
// Spans go to a local collector over HTTP; the collector handles
// authentication and forwarding. Returns the shutdown function, or nil
// when tracing is disabled.
func provideTracing(ctx context.Context, cfg *config.Config, logger log.Logger) func() {
	if cfg.OTLPEndpoint == "" {
		return nil
	}

	// SAFETY: os.Setenv is not concurrent-safe, but Setup runs exactly once
	// during startup before any goroutines are spawned.
	if os.Getenv("OTEL_SERVICE_NAME") == "" {
		_ = os.Setenv("OTEL_SERVICE_NAME", "ai-my-tickets")
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.OTLPEndpoint),
		otlptracehttp.WithInsecure(), // local collector, no TLS
	)
	if err != nil {
		logger.Warn("creating OTLP exporter, tracing disabled", "error", err)
		return nil
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter)
	tracing.TracerProvider().RegisterSpanProcessor(processor)
	logger.Debug("trace export enabled", "endpoint", cfg.OTLPEndpoint)

	shutdown := tracing.TracerProvider().Shutdown
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("shutting down tracer provider", "error", err)
		}
	}
}

// provideGenkit initializes Genkit with the configured AI provider. The
// googlegenai plugin reads GEMINI_API_KEY from the environment, so a key
// that arrived via the config file is exported before Init.
func provideGenkit(ctx context.Context, cfg *config.Config) (*genkit.Genkit, error) {
	switch cfg.Provider {
	case config.ProviderGoogleAI:
		// SAFETY: single-threaded startup, see provideTracing.
		if os.Getenv("GEMINI_API_KEY") == "" && cfg.APIKey != "" {
			_ = os.Setenv("GEMINI_API_KEY", cfg.APIKey)
		}
		g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with googleai provider")
		}
		return g, nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidProvider, cfg.Provider)
	}
}

// NewTicketClient builds the resilient ticket API client from
// configuration. Exported for commands that need the client without the
// rest of the application, such as the MCP server.
func NewTicketClient(cfg *config.Config, logger log.Logger) (*ticketing.Client, error) {
	client, err := ticketing.New(ticketing.Config{
		BaseURL: cfg.TicketAPI.BaseURL,
		Timeout: cfg.TicketAPI.Timeout,
		Policy: ticketing.RetryPolicy{
			MaxAttempts:    cfg.TicketAPI.MaxAttempts,
			InitialBackoff: cfg.TicketAPI.BackoffInitial,
			MaxBackoff:     cfg.TicketAPI.BackoffMax,
			Multiplier:     cfg.TicketAPI.BackoffMultiplier,
		},
		MaxPages: cfg.TicketAPI.MaxPages,
		Logger:   logger.With("component", "ticketing"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating ticket client: %w", err)
	}
	return client, nil
}
