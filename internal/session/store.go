package session

import (
	"sort"
	"sync"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"

	"github.com/juan-s-cruz/ai-my-tickets/internal/log"
)

// Store manages sessions in memory.
// It is safe for concurrent use by multiple goroutines.
type Store struct {
	mu         sync.RWMutex
	sessions   map[uuid.UUID]*entry
	maxHistory int
	logger     log.Logger
}

type entry struct {
	session  Session
	messages []*ai.Message
}

// NewStore creates a Store. maxHistory caps the messages kept per session;
// zero or negative means DefaultMaxHistory.
func NewStore(maxHistory int, logger log.Logger) *Store {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{
		sessions:   make(map[uuid.UUID]*entry),
		maxHistory: maxHistory,
		logger:     logger,
	}
}

// CreateSession starts a new conversation. An empty title stays empty until
// the first user message names the session.
func (s *Store) CreateSession(title string) *Session {
	now := time.Now()
	sess := Session{
		ID:        uuid.New(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.sessions[sess.ID] = &entry{session: sess}
	s.mu.Unlock()

	s.logger.Debug("created session", "id", sess.ID, "title", sess.Title)
	return &sess
}

// Session returns a snapshot of one session.
func (s *Store) Session(id uuid.UUID) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	snapshot := e.session
	return &snapshot, nil
}

// Sessions returns snapshots of all sessions, most recently updated first.
func (s *Store) Sessions() []*Session {
	s.mu.RLock()
	out := make([]*Session, 0, len(s.sessions))
	for _, e := range s.sessions {
		snapshot := e.session
		out = append(out, &snapshot)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

// DeleteSession removes a session and its history.
func (s *Store) DeleteSession(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(s.sessions, id)

	s.logger.Debug("deleted session", "id", id)
	return nil
}

// History returns a copy of the session's messages in order.
func (s *Store) History(id uuid.UUID) ([]*ai.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}

	out := make([]*ai.Message, len(e.messages))
	copy(out, e.messages)
	return out, nil
}

// AppendMessages adds messages to a session's history, trimming the oldest
// once the cap is exceeded. The first user message titles an untitled
// session.
func (s *Store) AppendMessages(id uuid.UUID, messages ...*ai.Message) error {
	if len(messages) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}

	e.messages = append(e.messages, messages...)
	if over := len(e.messages) - s.maxHistory; over > 0 {
		e.messages = append([]*ai.Message(nil), e.messages[over:]...)
	}

	if e.session.Title == "" {
		e.session.Title = deriveTitle(messages)
	}
	e.session.MessageCount = len(e.messages)
	e.session.UpdatedAt = time.Now()

	s.logger.Debug("appended messages", "id", id, "added", len(messages), "total", len(e.messages))
	return nil
}

// deriveTitle takes the first user message's text, truncated to a label.
func deriveTitle(messages []*ai.Message) string {
	for _, m := range messages {
		if m.Role != ai.RoleUser {
			continue
		}
		text := m.Text()
		runes := []rune(text)
		if len(runes) > titleRuneLimit {
			return string(runes[:titleRuneLimit])
		}
		return text
	}
	return ""
}
