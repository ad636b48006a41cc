// Package app assembles the application from explicit dependencies.
//
// Setup wires configuration into concrete components in dependency order:
// telemetry, Genkit, the ticket client, the tool layer, the session store,
// and the agent with its flow. Every component receives its dependencies
// through its constructor; nothing reads package state after startup.
// Close releases what Setup acquired.
package app

import (
	"github.com/firebase/genkit/go/genkit"

	"github.com/juan-s-cruz/ai-my-tickets/internal/agent"
	"github.com/juan-s-cruz/ai-my-tickets/internal/config"
	"github.com/juan-s-cruz/ai-my-tickets/internal/log"
	"github.com/juan-s-cruz/ai-my-tickets/internal/session"
	"github.com/juan-s-cruz/ai-my-tickets/internal/ticketing"
	"github.com/juan-s-cruz/ai-my-tickets/internal/tools"
)

// App is the assembled application.
type App struct {
	Config *config.Config
	Logger log.Logger

	Genkit   *genkit.Genkit
	Tickets  *ticketing.Client
	Tools    *tools.Handler
	Sessions *session.Store
	Agent    *agent.Agent

	// Flow is the registered chat flow, served by the api package and
	// consumed directly by the chat CLI.
	Flow *agent.Flow

	otelCleanup func()
}

// Close releases resources acquired during Setup. Safe to call on a
// partially assembled App and more than once.
func (a *App) Close() error {
	if a.otelCleanup != nil {
		a.otelCleanup()
		a.otelCleanup = nil
	}
	if a.Logger != nil {
		a.Logger.Debug("application closed")
	}
	return nil
}
