// Package ticketsim is an in-memory stand-in for the ticket backend: the
// same REST contract, filters, error bodies and pagination envelope,
// plus the disruption middleware that makes the real thing unreliable.
// It backs local development (the backend subcommand) and end-to-end
// tests that need a contract-faithful counterpart.
package ticketsim

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// Resolution statuses accepted by the backend.
const (
	StatusOpen     = "OPEN"
	StatusResolved = "RESOLVED"
	StatusClosed   = "CLOSED"
)

// statusValues keeps the declaration order used in error messages.
var statusValues = []string{StatusOpen, StatusResolved, StatusClosed}

func validStatus(s string) bool {
	for _, v := range statusValues {
		if s == v {
			return true
		}
	}
	return false
}

func allowedStatusList() string {
	return strings.Join(statusValues, ", ")
}

// Ticket is the backend's wire model.
type Ticket struct {
	ID               int       `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	Created          time.Time `json:"created"`
	ResolutionStatus string    `json:"resolution_status"`
}

// Store holds tickets in memory. Safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	tickets map[int]Ticket
	nextID  int

	// now stamps Created on insert; swapped in tests for stable ordering.
	now func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		tickets: make(map[int]Ticket),
		nextID:  1,
		now:     time.Now,
	}
}

// Create inserts a ticket, assigning its id and creation time. An empty
// status defaults to OPEN, matching the backend's model default.
func (s *Store) Create(title, description, status string) Ticket {
	if status == "" {
		status = StatusOpen
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := Ticket{
		ID:               s.nextID,
		Title:            title,
		Description:      description,
		Created:          s.now().UTC(),
		ResolutionStatus: status,
	}
	s.nextID++
	s.tickets[t.ID] = t
	return t
}

// Get returns one ticket.
func (s *Store) Get(id int) (Ticket, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tickets[id]
	return t, ok
}

// Save replaces a stored ticket by id.
func (s *Store) Save(t Ticket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickets[t.ID] = t
}

// Delete removes a ticket, reporting whether it existed.
func (s *Store) Delete(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tickets[id]; !ok {
		return false
	}
	delete(s.tickets, id)
	return true
}

// All returns every ticket, newest first (creation-time ties broken by
// descending id, so insertion order decides).
func (s *Store) All() []Ticket {
	s.mu.RLock()
	out := make([]Ticket, 0, len(s.tickets))
	for _, t := range s.tickets {
		out = append(out, t)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Created.Equal(out[j].Created) {
			return out[i].Created.After(out[j].Created)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

// FindDuplicate returns a ticket with the exact same title and
// description, if one exists. Duplicate submits answer 409 with this
// ticket so retried creates stay idempotent.
func (s *Store) FindDuplicate(title, description string) (Ticket, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tickets {
		if t.Title == title && t.Description == description {
			return t, true
		}
	}
	return Ticket{}, false
}

// SeedDemo fills the store with a small fixed dataset for local
// development. Creation times are staggered so list order is stable.
func (s *Store) SeedDemo() {
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	seed := []struct {
		title, description, status string
	}{
		{"VPN drops hourly", "The VPN connection drops every hour on the hour.", StatusOpen},
		{"Laptop will not boot", "Black screen after the vendor logo.", StatusOpen},
		{"Email stuck in outbox", "Messages queue but never send.", StatusResolved},
		{"Printer jam on floor 3", "Paper jams on every duplex job.", StatusClosed},
		{"Password reset loop", "Reset link returns to the login page.", StatusOpen},
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, row := range seed {
		t := Ticket{
			ID:               s.nextID,
			Title:            row.title,
			Description:      row.description,
			Created:          base.Add(time.Duration(i) * time.Minute),
			ResolutionStatus: row.status,
		}
		s.nextID++
		s.tickets[t.ID] = t
	}
}
