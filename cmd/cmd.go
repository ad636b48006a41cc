// Package cmd implements the ai-my-tickets command line interface.
//
// Commands:
//   - serve: SSE chat server backed by the support agent
//   - chat: one-shot client that streams an answer from a running server
//   - mcp: Model Context Protocol server exposing the ticket tools on stdio
//   - backend: local simulator of the unreliable ticket backend
//   - version: build information
//
// Long-running commands shut down gracefully on SIGINT/SIGTERM via
// context cancellation.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/juan-s-cruz/ai-my-tickets/internal/log"
)

// Execute dispatches to the requested command. Logs go to stderr so that
// stdout stays clean for the mcp transport and for chat output.
func Execute() error {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(log.NewWithWriter(os.Stderr, log.Config{Level: level}))

	if len(os.Args) < 2 {
		runHelp()
		return nil
	}

	switch os.Args[1] {
	case "serve":
		return runServe()
	case "chat":
		return runChat()
	case "mcp":
		return runMCP()
	case "backend":
		return runBackend()
	case "version", "--version", "-v":
		runVersion(os.Stdout)
		return nil
	case "help", "--help", "-h":
		runHelp()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", os.Args[1])
	}
}

// commandArgs returns the arguments after the command word.
func commandArgs() []string {
	if len(os.Args) > 2 {
		return os.Args[2:]
	}
	return nil
}

func runHelp() {
	fmt.Println(`ai-my-tickets - support chat agent for a flaky ticket backend

Usage:
  ai-my-tickets serve [addr]     Start the SSE chat server (default 127.0.0.1:8100)
  ai-my-tickets chat "message"   Send one message and stream the answer
  ai-my-tickets mcp              Start the MCP server on stdio
  ai-my-tickets backend [addr]   Run the ticket backend simulator (default 127.0.0.1:8200)
  ai-my-tickets version          Show version information
  ai-my-tickets help             Show this help

Chat flags:
  --server URL    Chat server base URL (default http://127.0.0.1:8100)
  --session ID    Continue an existing conversation

Environment variables:
  GEMINI_API_KEY  Gemini API key, required by serve
  DEBUG           Enable debug logging when set`)
}
