package api

import (
	"net/http"

	"github.com/juan-s-cruz/ai-my-tickets/internal/agent"
	"github.com/juan-s-cruz/ai-my-tickets/internal/log"
	"github.com/juan-s-cruz/ai-my-tickets/internal/session"
)

// HealthHandler serves liveness and readiness probes.
//
// Readiness reports whether the process is fully wired (session store and
// chat flow present). It deliberately does not ping the ticketing backend:
// the backend is expected to be flaky and the agent's retry layer absorbs
// that, so backend reachability must not flip this instance out of rotation.
type HealthHandler struct {
	store  *session.Store
	flow   *agent.Flow
	logger log.Logger
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(store *session.Store, flow *agent.Flow, logger log.Logger) *HealthHandler {
	return &HealthHandler{store: store, flow: flow, logger: logger}
}

// RegisterRoutes registers health endpoints on the mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /ready", h.handleReady)
}

// handleHealth is the liveness probe.
func (h *HealthHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady is the readiness probe.
func (h *HealthHandler) handleReady(w http.ResponseWriter, r *http.Request) {
	if h.store == nil || h.flow == nil {
		writeError(w, http.StatusServiceUnavailable, "not_ready", "agent not initialized")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
