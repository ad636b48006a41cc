package ticketing

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/juan-s-cruz/ai-my-tickets/internal/log"
)

const (
	defaultTimeout  = 10 * time.Second
	defaultMaxPages = 50
)

// Config assembles a Client. BaseURL is required; every other field has a
// usable default. All dependencies are explicit: nothing is read from
// globals after construction.
type Config struct {
	// BaseURL is the ticket collection endpoint, without trailing slash
	// (one is tolerated and stripped).
	BaseURL string

	// HTTPClient executes attempts. Default: a plain http.Client; per-
	// attempt deadlines come from the Timeout below, not the client.
	HTTPClient *http.Client

	// Timeout bounds one attempt. Default 10s.
	Timeout time.Duration

	// Policy is the retry policy for every call made through this client.
	// The zero value selects DefaultRetryPolicy(); a partially-filled
	// policy is a construction error, not a silent default.
	Policy RetryPolicy

	// MaxPages caps fetch-all walks. Default 50.
	MaxPages int

	// Limiter, when set, throttles every outbound attempt.
	Limiter *rate.Limiter

	// Logger defaults to slog.Default().
	Logger log.Logger
}

// Client calls the ticket backend with retries, classification, and
// pagination. Safe for concurrent use: all fields are set at construction
// and never mutated, and per-call state lives on the stack.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	policy     RetryPolicy
	maxPages   int
	limiter    *rate.Limiter
	logger     log.Logger
}

// New builds a Client, validating the base URL and the retry policy up
// front so calls never fail on configuration.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("ticketing: base URL %q needs a scheme and host", cfg.BaseURL)
	}

	policy := cfg.Policy
	if policy.isZero() {
		policy = DefaultRetryPolicy()
	}
	if err := validatePolicy(policy); err != nil {
		return nil, err
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    base,
		httpClient: httpClient,
		timeout:    timeout,
		policy:     policy,
		maxPages:   maxPages,
		limiter:    cfg.Limiter,
		logger:     logger,
	}, nil
}

func validatePolicy(p RetryPolicy) error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("ticketing: retry policy needs MaxAttempts >= 1, got %d", p.MaxAttempts)
	}
	if p.InitialBackoff <= 0 {
		return fmt.Errorf("ticketing: retry policy needs a positive InitialBackoff, got %s", p.InitialBackoff)
	}
	if p.MaxBackoff < p.InitialBackoff {
		return fmt.Errorf("ticketing: retry policy MaxBackoff %s is below InitialBackoff %s", p.MaxBackoff, p.InitialBackoff)
	}
	if p.Multiplier < 1 {
		return fmt.Errorf("ticketing: retry policy needs Multiplier >= 1, got %g", p.Multiplier)
	}
	return nil
}

// BaseURL returns the normalized collection endpoint this client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// Policy returns the retry policy every call runs under.
func (c *Client) Policy() RetryPolicy { return c.policy }

// CallInfo describes how a call concluded: the final HTTP status, the URL
// that answered, and the attempts consumed.
type CallInfo struct {
	StatusCode int
	URL        string
	Attempts   int
}

// FetchResult is a successful single-ticket fetch.
type FetchResult struct {
	CallInfo
	Ticket Ticket
}

// ListResult is a successful list call. For fetch-all walks, Page is the
// synthesized aggregate and PagesWalked counts the pages visited.
type ListResult struct {
	CallInfo
	Page        TicketPage
	PagesWalked int
}

// CreateResult is a successful create. AlreadyExists marks the 409 path: a
// duplicate submit whose ticket is already on the backend.
type CreateResult struct {
	CallInfo
	Ticket        Ticket
	AlreadyExists bool
}

// UpdateResult is a successful partial update carrying the patched ticket.
type UpdateResult struct {
	CallInfo
	Ticket Ticket
}

// FetchTicket retrieves one ticket by id.
func (c *Client) FetchTicket(ctx context.Context, req FetchRequest) (*FetchResult, error) {
	br := req.build(c.baseURL)

	res, attempts, err := c.do(ctx, br, callOptions{})
	if err != nil {
		return nil, err
	}

	var t Ticket
	if err := json.Unmarshal(res.body, &t); err != nil {
		return nil, malformed(res, attempts, err)
	}

	return &FetchResult{
		CallInfo: CallInfo{StatusCode: res.status, URL: res.url, Attempts: attempts},
		Ticket:   t,
	}, nil
}

// ListTickets lists tickets matching filter. With FetchAll set it walks
// every page and returns the aggregate.
func (c *Client) ListTickets(ctx context.Context, filter TicketFilter) (*ListResult, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	br := filter.build(c.baseURL)
	if filter.FetchAll {
		return c.walkPages(ctx, br)
	}

	res, attempts, err := c.do(ctx, br, callOptions{})
	if err != nil {
		return nil, err
	}

	var page TicketPage
	if err := json.Unmarshal(res.body, &page); err != nil {
		return nil, malformed(res, attempts, err)
	}

	return &ListResult{
		CallInfo:    CallInfo{StatusCode: res.status, URL: res.url, Attempts: attempts},
		Page:        page,
		PagesWalked: 1,
	}, nil
}

// CreateTicket submits a new ticket. A 409 counts as success: the ticket
// exists, most likely from an earlier attempt whose response got lost.
func (c *Client) CreateTicket(ctx context.Context, in CreateTicket) (*CreateResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	br, err := in.build(c.baseURL)
	if err != nil {
		return nil, err
	}

	res, attempts, err := c.do(ctx, br, callOptions{successOn409: true})
	if err != nil {
		return nil, err
	}

	result := &CreateResult{
		CallInfo:      CallInfo{StatusCode: res.status, URL: res.url, Attempts: attempts},
		AlreadyExists: res.status == http.StatusConflict,
	}

	var t Ticket
	if decodeErr := json.Unmarshal(res.body, &t); decodeErr != nil {
		// Conflict bodies are backend-shaped, not ticket-shaped; the
		// success stands without the decoded ticket.
		if result.AlreadyExists {
			return result, nil
		}
		return nil, malformed(res, attempts, decodeErr)
	}
	result.Ticket = t
	return result, nil
}

// UpdateTicket patches the given fields of an existing ticket.
func (c *Client) UpdateTicket(ctx context.Context, in UpdateTicket) (*UpdateResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	br, err := in.build(c.baseURL)
	if err != nil {
		return nil, err
	}

	res, attempts, err := c.do(ctx, br, callOptions{})
	if err != nil {
		return nil, err
	}

	var t Ticket
	if err := json.Unmarshal(res.body, &t); err != nil {
		return nil, malformed(res, attempts, err)
	}

	return &UpdateResult{
		CallInfo: CallInfo{StatusCode: res.status, URL: res.url, Attempts: attempts},
		Ticket:   t,
	}, nil
}

func malformed(res *attemptResult, attempts int, err error) *MalformedResponseError {
	return &MalformedResponseError{
		StatusCode: res.status,
		URL:        res.url,
		Snippet:    bodySnippet(res.body),
		Attempts:   attempts,
		Err:        err,
	}
}
