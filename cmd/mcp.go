package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/juan-s-cruz/ai-my-tickets/internal/app"
	"github.com/juan-s-cruz/ai-my-tickets/internal/config"
	"github.com/juan-s-cruz/ai-my-tickets/internal/mcp"
	"github.com/juan-s-cruz/ai-my-tickets/internal/tools"
)

// runMCP starts the MCP server on stdio. Only the ticket tools are exposed,
// so the model provider is never touched and no API key is required.
func runMCP() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := slog.Default()
	logger.Info("starting MCP server", "version", Version)

	client, err := app.NewTicketClient(cfg, logger)
	if err != nil {
		return err
	}
	handler, err := tools.NewHandler(client, logger.With("component", "tools"))
	if err != nil {
		return fmt.Errorf("creating ticket tools: %w", err)
	}

	server, err := mcp.NewServer(mcp.Config{
		Name:    "ai-my-tickets",
		Version: Version,
		Logger:  logger.With("component", "mcp"),
		Tickets: handler,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	logger.Info("MCP server ready",
		"transport", "stdio",
		"tools", strings.Join(tools.ToolNames(), ", "))

	if err := server.Run(ctx, &mcpsdk.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server: %w", err)
	}
	logger.Info("MCP server shut down")
	return nil
}
