package ticketing

import (
	"strings"
	"time"
)

// Status is a ticket resolution state as the backend spells it.
type Status string

// Resolution states accepted by the backend.
const (
	StatusOpen     Status = "OPEN"
	StatusResolved Status = "RESOLVED"
	StatusClosed   Status = "CLOSED"
)

// allStatuses lists valid states in the backend's declaration order; error
// messages enumerate them in this order.
var allStatuses = []Status{StatusOpen, StatusResolved, StatusClosed}

// Valid reports whether s is a status the backend accepts.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// allowedStatusList renders the valid statuses for error messages, matching
// the backend's own wording.
func allowedStatusList() string {
	parts := make([]string, len(allStatuses))
	for i, s := range allStatuses {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}

// Ticket is one backend ticket.
type Ticket struct {
	ID               int       `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	Created          time.Time `json:"created"`
	ResolutionStatus Status    `json:"resolution_status"`
}

// TicketPage is the backend's paginated list envelope. Next and Previous are
// absolute URLs, nil on the last/first page. An aggregated fetch-all result
// reuses this shape with Next and Previous nil and Count equal to
// len(Results).
type TicketPage struct {
	Count    int      `json:"count"`
	Next     *string  `json:"next"`
	Previous *string  `json:"previous"`
	Results  []Ticket `json:"results"`
}
