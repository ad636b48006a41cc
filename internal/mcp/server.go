// Package mcp exposes the ticket tools over the Model Context Protocol,
// so MCP-capable clients (editors, agent runtimes) call the exact same
// ticket operations the chat agent uses, resilience layer included.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/juan-s-cruz/ai-my-tickets/internal/log"
	"github.com/juan-s-cruz/ai-my-tickets/internal/tools"
)

// Config holds MCP server configuration.
type Config struct {
	Name    string
	Version string
	Logger  log.Logger
	Tickets *tools.Handler
}

// Server wraps the MCP SDK server around the ticket tool handler.
type Server struct {
	mcpServer *mcp.Server
	tickets   *tools.Handler
	logger    log.Logger
}

// NewServer creates an MCP server with all ticket tools registered.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("server name is required")
	}
	if cfg.Version == "" {
		return nil, fmt.Errorf("server version is required")
	}
	if cfg.Tickets == nil {
		return nil, fmt.Errorf("ticket handler is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	s := &Server{
		mcpServer: mcp.NewServer(&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		}, nil),
		tickets: cfg.Tickets,
		logger:  logger,
	}

	if err := s.registerTicketTools(); err != nil {
		return nil, fmt.Errorf("registering ticket tools: %w", err)
	}

	return s, nil
}

// Run starts the MCP server on the given transport. It blocks, handling
// protocol traffic until the context is cancelled or the transport closes.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	return s.mcpServer.Run(ctx, transport)
}
