package ticketsim

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/juan-s-cruz/ai-my-tickets/internal/log"
)

const (
	// titleMaxLen mirrors the backend's column width.
	titleMaxLen = 255

	// DefaultPageSize applies when the request carries no page_size.
	DefaultPageSize = 10

	// maxPageSize caps a requested page_size.
	maxPageSize = 200
)

// Config controls the simulator handler.
type Config struct {
	Store    *Store
	Logger   log.Logger
	PageSize int // default page size; zero means DefaultPageSize
}

// Handler serves the ticket REST contract over the store.
type Handler struct {
	store    *Store
	logger   log.Logger
	pageSize int
	mux      *http.ServeMux
}

// NewHandler creates the simulator handler.
func NewHandler(cfg Config) (*Handler, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	h := &Handler{
		store:    cfg.Store,
		logger:   logger,
		pageSize: pageSize,
		mux:      http.NewServeMux(),
	}

	// Both slash forms are served: clients address members without the
	// trailing slash and the backend's router also answers with it.
	h.mux.HandleFunc("GET /api/tickets", h.handleList)
	h.mux.HandleFunc("GET /api/tickets/{$}", h.handleList)
	h.mux.HandleFunc("POST /api/tickets", h.handleCreate)
	h.mux.HandleFunc("POST /api/tickets/{$}", h.handleCreate)
	h.mux.HandleFunc("GET /api/tickets/{id}", h.handleRetrieve)
	h.mux.HandleFunc("GET /api/tickets/{id}/{$}", h.handleRetrieve)
	h.mux.HandleFunc("PATCH /api/tickets/{id}", h.handleUpdate)
	h.mux.HandleFunc("PATCH /api/tickets/{id}/{$}", h.handleUpdate)
	h.mux.HandleFunc("DELETE /api/tickets/{id}", h.handleDelete)
	h.mux.HandleFunc("DELETE /api/tickets/{id}/{$}", h.handleDelete)

	return h, nil
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// listEnvelope is the paginated list body.
type listEnvelope struct {
	Count    int      `json:"count"`
	Next     *string  `json:"next"`
	Previous *string  `json:"previous"`
	Results  []Ticket `json:"results"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filtered, ok := h.filterTickets(w, q)
	if !ok {
		return
	}

	pageSize := h.pageSize
	if raw := q.Get("page_size"); raw != "" {
		// Unusable page_size values fall back to the default instead of
		// erroring, like the backend's paginator.
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			pageSize = min(v, maxPageSize)
		}
	}

	page := 1
	if raw := q.Get("page"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			writeDetail(w, http.StatusNotFound, "Invalid page.")
			return
		}
		page = v
	}

	totalPages := (len(filtered) + pageSize - 1) / pageSize
	if totalPages == 0 {
		totalPages = 1
	}
	if page > totalPages {
		writeDetail(w, http.StatusNotFound, "Invalid page.")
		return
	}

	start := (page - 1) * pageSize
	end := min(start+pageSize, len(filtered))

	envelope := listEnvelope{
		Count:   len(filtered),
		Results: filtered[start:end],
	}
	if page < totalPages {
		envelope.Next = pageLink(r, page+1)
	}
	if page > 1 {
		envelope.Previous = pageLink(r, page-1)
	}

	writeJSON(w, http.StatusOK, envelope)
}

// filterTickets applies the query filters, writing the error response and
// returning ok=false when a filter value is unusable.
func (h *Handler) filterTickets(w http.ResponseWriter, q url.Values) ([]Ticket, bool) {
	var ids map[int]bool
	if raw := q.Get("id"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			writeFieldErrors(w, http.StatusBadRequest, map[string][]string{"id": {"Enter a number."}})
			return nil, false
		}
		ids = map[int]bool{v: true}
	}
	if raw := q.Get("id__in"); raw != "" {
		ids = make(map[int]bool)
		for _, part := range strings.Split(raw, ",") {
			v, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				writeFieldErrors(w, http.StatusBadRequest, map[string][]string{"id__in": {"Enter a number."}})
				return nil, false
			}
			ids[v] = true
		}
	}

	var statuses map[string]bool
	if raw := q.Get("resolution_status"); raw != "" {
		if !validStatus(raw) {
			writeInvalidStatus(w, raw)
			return nil, false
		}
		statuses = map[string]bool{raw: true}
	}
	if raw := q.Get("resolution_status__in"); raw != "" {
		statuses = make(map[string]bool)
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if !validStatus(part) {
				writeInvalidStatus(w, part)
				return nil, false
			}
			statuses[part] = true
		}
	}

	search := strings.ToLower(q.Get("search"))

	var out []Ticket
	for _, t := range h.store.All() {
		if ids != nil && !ids[t.ID] {
			continue
		}
		if statuses != nil && !statuses[t.ResolutionStatus] {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(t.Title), search) &&
			!strings.Contains(strings.ToLower(t.Description), search) {
			continue
		}
		out = append(out, t)
	}
	if out == nil {
		out = []Ticket{}
	}
	return out, true
}

// pageLink builds the absolute URL of another page of the same query.
// Page one drops the page parameter, the way the backend's paginator
// renders its previous link.
func pageLink(r *http.Request, page int) *string {
	u := *r.URL
	q := u.Query()
	if page <= 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(page))
	}
	u.RawQuery = q.Encode()

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	abs := scheme + "://" + r.Host + u.String()
	return &abs
}

// createPayload distinguishes absent fields from blank ones.
type createPayload struct {
	Title            *string `json:"title"`
	Description      *string `json:"description"`
	ResolutionStatus *string `json:"resolution_status"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var payload createPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeDetail(w, http.StatusBadRequest, "JSON parse error.")
		return
	}

	fieldErrors := map[string][]string{}

	title := ""
	switch {
	case payload.Title == nil:
		fieldErrors["title"] = []string{"This field is required."}
	default:
		title = strings.TrimSpace(*payload.Title)
		if title == "" {
			fieldErrors["title"] = []string{"This field may not be blank."}
		} else if utf8.RuneCountInString(title) > titleMaxLen {
			fieldErrors["title"] = []string{fmt.Sprintf("Ensure this field has no more than %d characters.", titleMaxLen)}
		}
	}

	description := ""
	switch {
	case payload.Description == nil:
		fieldErrors["description"] = []string{"This field is required."}
	default:
		description = strings.TrimSpace(*payload.Description)
		if description == "" {
			fieldErrors["description"] = []string{"This field may not be blank."}
		}
	}

	status := ""
	if payload.ResolutionStatus != nil {
		status = *payload.ResolutionStatus
		if !validStatus(status) {
			fieldErrors["resolution_status"] = []string{fmt.Sprintf("%q is not a valid choice.", status)}
		}
	}

	if len(fieldErrors) > 0 {
		writeFieldErrors(w, http.StatusBadRequest, fieldErrors)
		return
	}

	// A byte-identical resubmit means the first attempt was stored but its
	// response never arrived; answer 409 with the stored ticket.
	if existing, ok := h.store.FindDuplicate(title, description); ok {
		h.logger.Debug("duplicate create", "ticket_id", existing.ID)
		writeJSON(w, http.StatusConflict, existing)
		return
	}

	t := h.store.Create(title, description, status)
	h.logger.Debug("ticket created", "ticket_id", t.ID)
	writeJSON(w, http.StatusCreated, t)
}

func (h *Handler) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	t, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// updatableFields is the serializer's field list; anything else in an
// update body is rejected.
var updatableFields = map[string]bool{
	"id":                true,
	"title":             true,
	"description":       true,
	"created":           true,
	"resolution_status": true,
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	t, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeDetail(w, http.StatusBadRequest, "JSON parse error.")
		return
	}

	unknown := map[string][]string{}
	for field := range raw {
		if !updatableFields[field] {
			unknown[field] = []string{"Unknown field sent in request body."}
		}
	}
	if len(unknown) > 0 {
		writeFieldErrors(w, http.StatusBadRequest, unknown)
		return
	}

	if rawStatus, present := raw["resolution_status"]; present {
		var status string
		if err := json.Unmarshal(rawStatus, &status); err != nil || !validStatus(status) {
			writeInvalidStatus(w, jsonScalar(rawStatus))
			return
		}
		t.ResolutionStatus = status
	}

	fieldErrors := map[string][]string{}

	if rawTitle, present := raw["title"]; present {
		var title string
		if err := json.Unmarshal(rawTitle, &title); err != nil {
			fieldErrors["title"] = []string{"Not a valid string."}
		} else if title = strings.TrimSpace(title); title == "" {
			fieldErrors["title"] = []string{"This field may not be blank."}
		} else if utf8.RuneCountInString(title) > titleMaxLen {
			fieldErrors["title"] = []string{fmt.Sprintf("Ensure this field has no more than %d characters.", titleMaxLen)}
		} else {
			t.Title = title
		}
	}

	if rawDescription, present := raw["description"]; present {
		var description string
		if err := json.Unmarshal(rawDescription, &description); err != nil {
			fieldErrors["description"] = []string{"Not a valid string."}
		} else if description = strings.TrimSpace(description); description == "" {
			fieldErrors["description"] = []string{"This field may not be blank."}
		} else {
			t.Description = description
		}
	}

	if len(fieldErrors) > 0 {
		writeFieldErrors(w, http.StatusBadRequest, fieldErrors)
		return
	}

	// id and created are read-only; incoming values are ignored.
	h.store.Save(t)
	h.logger.Debug("ticket updated", "ticket_id", t.ID)
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	rawID := r.PathValue("id")
	id, err := strconv.Atoi(rawID)
	if err != nil || !h.store.Delete(id) {
		writeDetail(w, http.StatusNotFound, "Ticket with id '%s' was not found.", rawID)
		return
	}
	h.logger.Debug("ticket deleted", "ticket_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// lookup resolves the {id} path value, answering the contract's 404 when
// it does not name a stored ticket.
func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (Ticket, bool) {
	rawID := r.PathValue("id")
	id, err := strconv.Atoi(rawID)
	if err != nil {
		writeDetail(w, http.StatusNotFound, "Ticket with id '%s' was not found.", rawID)
		return Ticket{}, false
	}
	t, ok := h.store.Get(id)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Ticket with id '%s' was not found.", rawID)
		return Ticket{}, false
	}
	return t, true
}

// jsonScalar renders a raw JSON value for an error message, unquoting
// strings.
func jsonScalar(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeDetail writes the backend's {"detail": ...} error body.
func writeDetail(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, map[string]string{"detail": fmt.Sprintf(format, args...)})
}

// writeFieldErrors writes the backend's per-field error body.
func writeFieldErrors(w http.ResponseWriter, status int, fields map[string][]string) {
	writeJSON(w, status, fields)
}

// writeInvalidStatus writes the 422 body reserved for bad resolution
// statuses.
func writeInvalidStatus(w http.ResponseWriter, value string) {
	writeFieldErrors(w, http.StatusUnprocessableEntity, map[string][]string{
		"resolution_status": {fmt.Sprintf("Invalid status '%s'. Allowed values are: %s.", value, allowedStatusList())},
	})
}
