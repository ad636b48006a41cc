package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/juan-s-cruz/ai-my-tickets/internal/agent"
	"github.com/juan-s-cruz/ai-my-tickets/internal/log"
	"github.com/juan-s-cruz/ai-my-tickets/internal/session"
)

// retryHintMillis tells SSE clients how long to wait before reconnecting.
const retryHintMillis = 5000

// ChatHandler serves the streaming chat endpoint.
type ChatHandler struct {
	flow   *agent.Flow
	store  *session.Store
	logger log.Logger
}

// NewChatHandler creates a chat handler backed by the agent flow.
func NewChatHandler(flow *agent.Flow, store *session.Store, logger log.Logger) *ChatHandler {
	return &ChatHandler{flow: flow, store: store, logger: logger}
}

// RegisterRoutes registers the chat endpoint on the mux.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/chat", h.handleChat)
}

// ChatRequest is the body of POST /api/chat. An empty session_id starts a
// new conversation; the end event carries the id to continue it.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

// handleChat validates the request, then streams the agent's answer as
// server-sent events: token events carry response deltas, a final end
// event confirms completion, and an error event reports mid-stream
// failures. Validation errors are plain JSON responses sent before any
// SSE bytes go out.
func (h *ChatHandler) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "message is required")
		return
	}

	sessionID, err := h.resolveSession(req.SessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "session not found")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid session id")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "internal_error", "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache, no-transform")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	fmt.Fprintf(w, "retry: %d\n\n", retryHintMillis)
	flusher.Flush()

	input := agent.Input{Message: req.Message, SessionID: sessionID}
	for streamValue, err := range h.flow.Stream(r.Context(), input) {
		if err != nil {
			h.logger.Error("chat stream failed", "error", err, "session_id", sessionID)
			h.writeEvent(w, flusher, "error", map[string]string{"message": err.Error()})
			return
		}
		if streamValue.Done {
			h.writeEvent(w, flusher, "end", map[string]any{
				"ok":         true,
				"session_id": streamValue.Output.SessionID,
			})
			return
		}
		if streamValue.Stream.Delta != "" {
			h.writeEvent(w, flusher, "token", map[string]string{"delta": streamValue.Stream.Delta})
		}
	}
}

// resolveSession maps the request's session_id to an existing session,
// creating a fresh one when the id is empty.
func (h *ChatHandler) resolveSession(raw string) (string, error) {
	if raw == "" {
		sess := h.store.CreateSession("")
		return sess.ID.String(), nil
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return "", err
	}
	if _, err := h.store.Session(id); err != nil {
		return "", err
	}
	return id.String(), nil
}

// writeEvent sends one SSE event with a JSON payload.
func (h *ChatHandler) writeEvent(w http.ResponseWriter, flusher http.Flusher, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("failed to marshal SSE payload", "error", err, "event", event)
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	flusher.Flush()
}
