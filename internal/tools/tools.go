package tools

import (
	"context"
	"fmt"

	"github.com/juan-s-cruz/ai-my-tickets/internal/log"
	"github.com/juan-s-cruz/ai-my-tickets/internal/ticketing"
)

// TicketAPI is the slice of the ticket client the tools need. Defined here,
// on the consumer side, so tests can substitute a stub.
type TicketAPI interface {
	FetchTicket(ctx context.Context, req ticketing.FetchRequest) (*ticketing.FetchResult, error)
	ListTickets(ctx context.Context, filter ticketing.TicketFilter) (*ticketing.ListResult, error)
	CreateTicket(ctx context.Context, in ticketing.CreateTicket) (*ticketing.CreateResult, error)
	UpdateTicket(ctx context.Context, in ticketing.UpdateTicket) (*ticketing.UpdateResult, error)
}

// Result is the envelope every ticket tool returns to the model.
type Result struct {
	OK     bool   `json:"ok"`
	Status int    `json:"status,omitempty"`
	URL    string `json:"url,omitempty"`
	Data   any    `json:"data,omitempty"`
	Error  *Error `json:"error,omitempty"`
}

// Error describes a failed call in terms the model can act on. Type is one
// of the ticket client's error classes (validation, network_connection,
// network_timeout, retryable_http, terminal_http, malformed_response,
// page_limit); Message keeps the backend's wording.
type Error struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	Status   int    `json:"status,omitempty"`
	Attempts int    `json:"attempts,omitempty"`
}

func success(info ticketing.CallInfo, data any) Result {
	return Result{OK: true, Status: info.StatusCode, URL: info.URL, Data: data}
}

func failure(err error) Result {
	return Result{Error: &Error{
		Type:     ticketing.ErrorType(err),
		Message:  err.Error(),
		Status:   ticketing.StatusCode(err),
		Attempts: ticketing.Attempts(err),
	}}
}

// Handler holds the dependencies shared by all ticket tools.
// Use NewHandler to create an instance, then either:
//   - call methods directly (the MCP server does this), or
//   - register with Genkit via Register.
type Handler struct {
	api    TicketAPI
	logger log.Logger
}

// NewHandler creates a Handler.
func NewHandler(api TicketAPI, logger log.Logger) (*Handler, error) {
	if api == nil {
		return nil, fmt.Errorf("ticket API is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Handler{api: api, logger: logger}, nil
}

// FetchTicketInput defines input for the fetchTicket tool.
type FetchTicketInput struct {
	TicketID string `json:"ticket_id" jsonschema:"The id of the ticket to fetch"`
}

// FetchTicket retrieves one ticket by id.
func (h *Handler) FetchTicket(ctx context.Context, input FetchTicketInput) (Result, error) {
	h.logger.Info("fetchTicket called", "ticket_id", input.TicketID)

	res, err := h.api.FetchTicket(ctx, ticketing.FetchRequest{TicketID: input.TicketID})
	if err != nil {
		h.logger.Error("fetchTicket failed", "ticket_id", input.TicketID, "error", err)
		return failure(err), nil
	}

	h.logger.Info("fetchTicket succeeded", "ticket_id", input.TicketID, "attempts", res.Attempts)
	return success(res.CallInfo, res.Ticket), nil
}

// ListTicketsInput defines input for the listTicketsFiltered tool.
type ListTicketsInput struct {
	Search   string   `json:"search,omitempty" jsonschema:"Full-text search over ticket titles and descriptions"`
	IDs      []int    `json:"ids,omitempty" jsonschema:"Restrict to these ticket ids"`
	Statuses []string `json:"statuses,omitempty" jsonschema:"Restrict to these resolution statuses (OPEN RESOLVED CLOSED)"`
	Page     int      `json:"page,omitempty" jsonschema:"Result page to fetch; 1 is the first page"`
	PageSize int      `json:"page_size,omitempty" jsonschema:"Results per page (max 200)"`
	FetchAll bool     `json:"fetch_all,omitempty" jsonschema:"Walk every page and return the complete result set"`
}

// listData is the payload of a successful list call.
type listData struct {
	Page        ticketing.TicketPage `json:"page"`
	PagesWalked int                  `json:"pages_walked"`
}

// ListTickets searches and filters tickets.
func (h *Handler) ListTickets(ctx context.Context, input ListTicketsInput) (Result, error) {
	h.logger.Info("listTicketsFiltered called",
		"search", input.Search, "ids", input.IDs, "statuses", input.Statuses, "fetch_all", input.FetchAll)

	statuses := make([]ticketing.Status, len(input.Statuses))
	for i, s := range input.Statuses {
		statuses[i] = ticketing.Status(s)
	}

	res, err := h.api.ListTickets(ctx, ticketing.TicketFilter{
		Search:   input.Search,
		IDs:      input.IDs,
		Statuses: statuses,
		Page:     input.Page,
		PageSize: input.PageSize,
		FetchAll: input.FetchAll,
	})
	if err != nil {
		h.logger.Error("listTicketsFiltered failed", "error", err)
		return failure(err), nil
	}

	h.logger.Info("listTicketsFiltered succeeded",
		"count", res.Page.Count, "pages_walked", res.PagesWalked, "attempts", res.Attempts)
	return success(res.CallInfo, listData{Page: res.Page, PagesWalked: res.PagesWalked}), nil
}

// CreateTicketInput defines input for the createTicket tool.
type CreateTicketInput struct {
	Title       string `json:"title" jsonschema:"Short summary of the issue (3-200 characters)"`
	Description string `json:"description" jsonschema:"Full description of the issue"`
}

// createData is the payload of a successful create call. AlreadyExists marks
// a duplicate submit whose ticket was already stored by an earlier attempt.
type createData struct {
	Ticket        ticketing.Ticket `json:"ticket"`
	AlreadyExists bool             `json:"already_exists"`
}

// CreateTicket opens a new ticket.
func (h *Handler) CreateTicket(ctx context.Context, input CreateTicketInput) (Result, error) {
	h.logger.Info("createTicket called", "title", input.Title)

	res, err := h.api.CreateTicket(ctx, ticketing.CreateTicket{
		Title:       input.Title,
		Description: input.Description,
	})
	if err != nil {
		h.logger.Error("createTicket failed", "title", input.Title, "error", err)
		return failure(err), nil
	}

	h.logger.Info("createTicket succeeded",
		"ticket_id", res.Ticket.ID, "already_exists", res.AlreadyExists, "attempts", res.Attempts)
	return success(res.CallInfo, createData{Ticket: res.Ticket, AlreadyExists: res.AlreadyExists}), nil
}

// UpdateTicketInput defines input for the updateTicket tool. Only the fields
// the model sets are patched; the rest stay untouched.
type UpdateTicketInput struct {
	TicketID         string  `json:"ticket_id" jsonschema:"The id of the ticket to update"`
	Title            *string `json:"title,omitempty" jsonschema:"New title (3-200 characters)"`
	Description      *string `json:"description,omitempty" jsonschema:"New description"`
	ResolutionStatus *string `json:"resolution_status,omitempty" jsonschema:"New resolution status (OPEN RESOLVED or CLOSED)"`
}

// UpdateTicket patches an existing ticket.
func (h *Handler) UpdateTicket(ctx context.Context, input UpdateTicketInput) (Result, error) {
	h.logger.Info("updateTicket called", "ticket_id", input.TicketID)

	update := ticketing.UpdateTicket{
		TicketID:    input.TicketID,
		Title:       input.Title,
		Description: input.Description,
	}
	if input.ResolutionStatus != nil {
		status := ticketing.Status(*input.ResolutionStatus)
		update.ResolutionStatus = &status
	}

	res, err := h.api.UpdateTicket(ctx, update)
	if err != nil {
		h.logger.Error("updateTicket failed", "ticket_id", input.TicketID, "error", err)
		return failure(err), nil
	}

	h.logger.Info("updateTicket succeeded", "ticket_id", input.TicketID, "attempts", res.Attempts)
	return success(res.CallInfo, res.Ticket), nil
}
