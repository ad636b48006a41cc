package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/juan-s-cruz/ai-my-tickets/internal/tools"
)

// registerTicketTools registers the four ticket tools. Names and input
// schemas match the Genkit registrations, so a client sees the same
// surface either way.
func (s *Server) registerTicketTools() error {
	fetchSchema, err := jsonschema.For[tools.FetchTicketInput](nil)
	if err != nil {
		return fmt.Errorf("schema for %s: %w", tools.FetchTicketName, err)
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        tools.FetchTicketName,
		Description: "Fetch a single support ticket by its id. Returns the ticket's title, description, creation time, and resolution status.",
		InputSchema: fetchSchema,
	}, s.fetchTicket)

	listSchema, err := jsonschema.For[tools.ListTicketsInput](nil)
	if err != nil {
		return fmt.Errorf("schema for %s: %w", tools.ListTicketsName, err)
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        tools.ListTicketsName,
		Description: "List support tickets. Optional filters: full-text search, ticket ids, resolution statuses (OPEN, RESOLVED, CLOSED), and paging. Set fetch_all to collect every page.",
		InputSchema: listSchema,
	}, s.listTickets)

	createSchema, err := jsonschema.For[tools.CreateTicketInput](nil)
	if err != nil {
		return fmt.Errorf("schema for %s: %w", tools.CreateTicketName, err)
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        tools.CreateTicketName,
		Description: "Create a new support ticket from a title (3-200 characters) and a description. Returns the stored ticket including its id.",
		InputSchema: createSchema,
	}, s.createTicket)

	updateSchema, err := jsonschema.For[tools.UpdateTicketInput](nil)
	if err != nil {
		return fmt.Errorf("schema for %s: %w", tools.UpdateTicketName, err)
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        tools.UpdateTicketName,
		Description: "Update an existing support ticket. Requires the ticket id and at least one of: title, description, resolution_status (OPEN, RESOLVED, CLOSED).",
		InputSchema: updateSchema,
	}, s.updateTicket)

	return nil
}

func (s *Server) fetchTicket(ctx context.Context, _ *mcp.CallToolRequest, input tools.FetchTicketInput) (*mcp.CallToolResult, any, error) {
	result, err := s.tickets.FetchTicket(ctx, input)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", tools.FetchTicketName, err)
	}
	return resultToMCP(result), nil, nil
}

func (s *Server) listTickets(ctx context.Context, _ *mcp.CallToolRequest, input tools.ListTicketsInput) (*mcp.CallToolResult, any, error) {
	result, err := s.tickets.ListTickets(ctx, input)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", tools.ListTicketsName, err)
	}
	return resultToMCP(result), nil, nil
}

func (s *Server) createTicket(ctx context.Context, _ *mcp.CallToolRequest, input tools.CreateTicketInput) (*mcp.CallToolResult, any, error) {
	result, err := s.tickets.CreateTicket(ctx, input)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", tools.CreateTicketName, err)
	}
	return resultToMCP(result), nil, nil
}

func (s *Server) updateTicket(ctx context.Context, _ *mcp.CallToolRequest, input tools.UpdateTicketInput) (*mcp.CallToolResult, any, error) {
	result, err := s.tickets.UpdateTicket(ctx, input)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", tools.UpdateTicketName, err)
	}
	return resultToMCP(result), nil, nil
}

// resultToMCP converts a tool envelope to an MCP result. The envelope is
// marshaled whole for success and failure alike, so MCP clients parse one
// shape; IsError mirrors the envelope's error field for clients that only
// look at the protocol flag.
func resultToMCP(result tools.Result) *mcp.CallToolResult {
	b, err := json.Marshal(result)
	if err != nil {
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("marshaling result: %v", err)}},
			IsError: true,
		}
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(b)}},
		IsError: result.Error != nil,
	}
}
