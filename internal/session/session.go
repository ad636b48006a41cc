package session

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound indicates the requested session does not exist.
// Check with errors.Is.
var ErrNotFound = errors.New("session not found")

// DefaultMaxHistory bounds a session's history when no limit is configured.
const DefaultMaxHistory = 100

// titleRuneLimit bounds titles derived from the first user message.
const titleRuneLimit = 60

// Session describes one conversation. It is a snapshot: mutating it does not
// affect the store.
type Session struct {
	ID           uuid.UUID `json:"id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}
