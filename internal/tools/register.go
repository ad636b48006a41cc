package tools

import (
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// Genkit tool names; the set is closed, adding a tool means adding it here.
const (
	FetchTicketName  = "fetchTicket"
	ListTicketsName  = "listTicketsFiltered"
	CreateTicketName = "createTicket"
	UpdateTicketName = "updateTicket"
)

// toolNames is the single source of truth for the registered tool names.
var toolNames = []string{
	FetchTicketName,
	ListTicketsName,
	CreateTicketName,
	UpdateTicketName,
}

// ToolNames returns the names of all ticket tools.
func ToolNames() []string {
	return toolNames
}

// Register defines the ticket tools with Genkit. The closures only adapt
// *ai.ToolContext to a plain context; the logic lives on Handler so the MCP
// server can call it without Genkit.
func Register(g *genkit.Genkit, h *Handler) error {
	if g == nil {
		return fmt.Errorf("genkit instance is required")
	}
	if h == nil {
		return fmt.Errorf("handler is required")
	}

	genkit.DefineTool(g, FetchTicketName,
		"Fetch a single support ticket by its id. Returns the ticket's title, description, "+
			"creation time, and resolution status.",
		func(toolCtx *ai.ToolContext, input FetchTicketInput) (Result, error) {
			return h.FetchTicket(toolCtx.Context, input)
		})

	genkit.DefineTool(g, ListTicketsName,
		"List support tickets. Optional filters: full-text search, ticket ids, resolution "+
			"statuses (OPEN, RESOLVED, CLOSED), and paging. Set fetch_all to collect every page.",
		func(toolCtx *ai.ToolContext, input ListTicketsInput) (Result, error) {
			return h.ListTickets(toolCtx.Context, input)
		})

	genkit.DefineTool(g, CreateTicketName,
		"Create a new support ticket from a title (3-200 characters) and a description. "+
			"Returns the stored ticket including its id.",
		func(toolCtx *ai.ToolContext, input CreateTicketInput) (Result, error) {
			return h.CreateTicket(toolCtx.Context, input)
		})

	genkit.DefineTool(g, UpdateTicketName,
		"Update an existing support ticket. Requires the ticket id and at least one of: "+
			"title, description, resolution_status (OPEN, RESOLVED, CLOSED).",
		func(toolCtx *ai.ToolContext, input UpdateTicketInput) (Result, error) {
			return h.UpdateTicket(toolCtx.Context, input)
		})

	return nil
}

// Refs resolves the registered tools for passing to a generate call.
func Refs(g *genkit.Genkit) []ai.ToolRef {
	refs := make([]ai.ToolRef, 0, len(toolNames))
	for _, name := range toolNames {
		if tool := genkit.LookupTool(g, name); tool != nil {
			refs = append(refs, tool)
		}
	}
	return refs
}
