package ticketing

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Title and description bounds enforced before any request leaves the client.
const (
	titleMinLen       = 3
	titleMaxLen       = 200
	descriptionMinLen = 1
	descriptionMaxLen = 20000

	pageSizeMax = 200
)

// builtRequest is a fully-built request: the transport executes it verbatim,
// one attempt at a time, never mutating it.
type builtRequest struct {
	method string
	url    string
	header http.Header
	body   []byte
}

// clone returns a copy safe to redirect at another URL (pagination walks
// reuse the original headers against each next link).
func (s *builtRequest) clone(rawURL string) *builtRequest {
	return &builtRequest{
		method: s.method,
		url:    rawURL,
		header: s.header.Clone(),
		body:   s.body,
	}
}

// FetchRequest addresses a single ticket. The zero TicketID addresses the
// collection root (the path keeps its trailing slash in that case), matching
// how the backend routes an empty id.
type FetchRequest struct {
	// TicketID is appended to the base URL path.
	TicketID string

	// Params are extra query parameters passed through unchanged.
	Params map[string]string

	// Headers are extra request headers. An Accept header here suppresses
	// the default "application/json".
	Headers map[string]string
}

func (r FetchRequest) build(baseURL string) *builtRequest {
	target := baseURL + "/" + url.PathEscape(r.TicketID)

	if len(r.Params) > 0 {
		q := url.Values{}
		for k, v := range r.Params {
			q.Set(k, v)
		}
		target += "?" + q.Encode()
	}

	header := http.Header{}
	for k, v := range r.Headers {
		header.Set(k, v)
	}

	return &builtRequest{method: http.MethodGet, url: target, header: header}
}

// TicketFilter selects tickets for a list call. Zero values mean "not
// filtered"; Validate runs before any I/O.
type TicketFilter struct {
	// Search is full-text search over the backend's searchable fields.
	Search string

	// IDs filters by exact id. One id encodes as id=5, several as
	// id__in=5,7 (caller order preserved).
	IDs []int

	// Statuses filters by resolution state. Deduplicated and sorted before
	// encoding; one value encodes as resolution_status=OPEN, several as
	// resolution_status__in=CLOSED,OPEN.
	Statuses []Status

	// Page selects one result page; zero means the first.
	Page int

	// PageSize overrides the backend's page size when positive (max 200).
	PageSize int

	// FetchAll walks every page and aggregates the results.
	FetchAll bool
}

// Validate rejects unusable filters before any network traffic.
func (f TicketFilter) Validate() error {
	for _, s := range f.Statuses {
		if !s.Valid() {
			return &ValidationError{
				Field:  "resolution_status",
				Reason: fmt.Sprintf("Invalid status '%s'. Allowed values are: %s.", s, allowedStatusList()),
			}
		}
	}
	if f.Page < 0 {
		return &ValidationError{Field: "page", Reason: "must be 1 or greater"}
	}
	if f.PageSize < 0 || f.PageSize > pageSizeMax {
		return &ValidationError{Field: "page_size", Reason: fmt.Sprintf("must be between 1 and %d", pageSizeMax)}
	}
	return nil
}

// canonicalStatuses deduplicates and sorts the requested statuses so
// logically equal filters produce byte-equal query strings.
func (f TicketFilter) canonicalStatuses() []Status {
	if len(f.Statuses) == 0 {
		return nil
	}
	out := make([]Status, 0, len(f.Statuses))
	seen := make(map[Status]bool, len(f.Statuses))
	for _, s := range f.Statuses {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	slices.Sort(out)
	return out
}

// query encodes the filter the way the backend's filter syntax expects.
func (f TicketFilter) query() url.Values {
	q := url.Values{}

	if f.Search != "" {
		q.Set("search", f.Search)
	}

	switch len(f.IDs) {
	case 0:
	case 1:
		q.Set("id", strconv.Itoa(f.IDs[0]))
	default:
		parts := make([]string, len(f.IDs))
		for i, id := range f.IDs {
			parts[i] = strconv.Itoa(id)
		}
		q.Set("id__in", strings.Join(parts, ","))
	}

	statuses := f.canonicalStatuses()
	switch len(statuses) {
	case 0:
	case 1:
		q.Set("resolution_status", string(statuses[0]))
	default:
		parts := make([]string, len(statuses))
		for i, s := range statuses {
			parts[i] = string(s)
		}
		q.Set("resolution_status__in", strings.Join(parts, ","))
	}

	if f.Page > 1 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(f.PageSize))
	}

	return q
}

func (f TicketFilter) build(baseURL string) *builtRequest {
	target := baseURL + "/"
	if q := f.query(); len(q) > 0 {
		target += "?" + q.Encode()
	}
	return &builtRequest{method: http.MethodGet, url: target, header: http.Header{}}
}

// CreateTicket is the payload for a new ticket.
type CreateTicket struct {
	Title       string
	Description string
}

// normalized trims the title; the trimmed value is what gets validated and
// sent.
func (c CreateTicket) normalized() CreateTicket {
	c.Title = strings.TrimSpace(c.Title)
	return c
}

// Validate applies the title and description bounds to the normalized input.
func (c CreateTicket) Validate() error {
	n := c.normalized()
	if err := validateTitle(n.Title); err != nil {
		return err
	}
	return validateDescription(n.Description)
}

func validateTitle(title string) error {
	if l := utf8.RuneCountInString(title); l < titleMinLen || l > titleMaxLen {
		return &ValidationError{
			Field:  "title",
			Reason: fmt.Sprintf("must be between %d and %d characters after trimming, got %d", titleMinLen, titleMaxLen, l),
		}
	}
	return nil
}

func validateDescription(description string) error {
	if l := utf8.RuneCountInString(description); l < descriptionMinLen || l > descriptionMaxLen {
		return &ValidationError{
			Field:  "description",
			Reason: fmt.Sprintf("must be between %d and %d characters, got %d", descriptionMinLen, descriptionMaxLen, l),
		}
	}
	return nil
}

func (c CreateTicket) build(baseURL string) (*builtRequest, error) {
	n := c.normalized()

	body, err := json.Marshal(map[string]string{
		"title":       n.Title,
		"description": n.Description,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding create payload: %w", err)
	}

	header := http.Header{}
	header.Set("Content-Type", "application/json")

	return &builtRequest{
		method: http.MethodPost,
		url:    baseURL + "/",
		header: header,
		body:   body,
	}, nil
}

// UpdateTicket patches an existing ticket. Nil fields stay untouched on the
// backend; at least one must be set.
type UpdateTicket struct {
	TicketID         string
	Title            *string
	Description      *string
	ResolutionStatus *Status
}

// Validate requires a target id, at least one change, and applies the same
// field bounds as create to whichever fields are present.
func (u UpdateTicket) Validate() error {
	if strings.TrimSpace(u.TicketID) == "" {
		return &ValidationError{Field: "ticket_id", Reason: "must not be empty"}
	}
	if u.Title == nil && u.Description == nil && u.ResolutionStatus == nil {
		return &ValidationError{Field: "update", Reason: "at least one of title, description, resolution_status is required"}
	}
	if u.Title != nil {
		if err := validateTitle(strings.TrimSpace(*u.Title)); err != nil {
			return err
		}
	}
	if u.Description != nil {
		if err := validateDescription(*u.Description); err != nil {
			return err
		}
	}
	if u.ResolutionStatus != nil && !u.ResolutionStatus.Valid() {
		return &ValidationError{
			Field:  "resolution_status",
			Reason: fmt.Sprintf("Invalid status '%s'. Allowed values are: %s.", *u.ResolutionStatus, allowedStatusList()),
		}
	}
	return nil
}

func (u UpdateTicket) build(baseURL string) (*builtRequest, error) {
	payload := map[string]any{}
	if u.Title != nil {
		payload["title"] = strings.TrimSpace(*u.Title)
	}
	if u.Description != nil {
		payload["description"] = *u.Description
	}
	if u.ResolutionStatus != nil {
		payload["resolution_status"] = *u.ResolutionStatus
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding update payload: %w", err)
	}

	header := http.Header{}
	header.Set("Content-Type", "application/json")

	return &builtRequest{
		method: http.MethodPatch,
		url:    baseURL + "/" + url.PathEscape(u.TicketID) + "/",
		header: header,
		body:   body,
	}, nil
}
