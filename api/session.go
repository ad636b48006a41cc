package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/juan-s-cruz/ai-my-tickets/internal/log"
	"github.com/juan-s-cruz/ai-my-tickets/internal/session"
)

// maxTitleLength caps user-supplied session titles.
const maxTitleLength = 100

// SessionHandler serves session management endpoints.
type SessionHandler struct {
	store  *session.Store
	logger log.Logger
}

// NewSessionHandler creates a session handler.
func NewSessionHandler(store *session.Store, logger log.Logger) *SessionHandler {
	return &SessionHandler{store: store, logger: logger}
}

// RegisterRoutes registers session endpoints on the mux.
func (h *SessionHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/sessions", h.handleList)
	mux.HandleFunc("POST /api/sessions", h.handleCreate)
	mux.HandleFunc("GET /api/sessions/{id}/messages", h.handleMessages)
	mux.HandleFunc("DELETE /api/sessions/{id}", h.handleDelete)
}

// SessionListResponse is the body of GET /api/sessions.
type SessionListResponse struct {
	Sessions []*session.Session `json:"sessions"`
	Total    int                `json:"total"`
}

// handleList returns sessions, most recently updated first.
func (h *SessionHandler) handleList(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", 50, 1, 200)
	offset := parseIntParam(r, "offset", 0, 0, 1<<20)

	all := h.store.Sessions()
	total := len(all)

	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}

	writeJSON(w, http.StatusOK, SessionListResponse{
		Sessions: all[offset:end],
		Total:    total,
	})
}

// CreateSessionRequest is the body of POST /api/sessions.
type CreateSessionRequest struct {
	Title string `json:"title"`
}

// handleCreate starts a new conversation.
func (h *SessionHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if utf8.RuneCountInString(req.Title) > maxTitleLength {
		writeError(w, http.StatusBadRequest, "invalid_request", "title too long")
		return
	}

	sess := h.store.CreateSession(req.Title)
	writeJSON(w, http.StatusCreated, sess)
}

// MessageView is one history entry in GET /api/sessions/{id}/messages.
type MessageView struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// MessagesResponse is the body of GET /api/sessions/{id}/messages.
type MessagesResponse struct {
	SessionID uuid.UUID     `json:"session_id"`
	Messages  []MessageView `json:"messages"`
}

// handleMessages returns the conversation history of one session.
func (h *SessionHandler) handleMessages(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid session id")
		return
	}

	history, err := h.store.History(id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "session not found")
			return
		}
		h.logger.Error("failed to load history", "error", err, "session_id", id)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to load history")
		return
	}

	views := make([]MessageView, 0, len(history))
	for _, m := range history {
		views = append(views, MessageView{Role: string(m.Role), Text: m.Text()})
	}

	writeJSON(w, http.StatusOK, MessagesResponse{SessionID: id, Messages: views})
}

// handleDelete removes a session and its history.
func (h *SessionHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid session id")
		return
	}

	if err := h.store.DeleteSession(id); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "session not found")
			return
		}
		h.logger.Error("failed to delete session", "error", err, "session_id", id)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to delete session")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
