package ticketing

import (
	"errors"
	"fmt"
)

// ErrPageLimit aborts a fetch-all walk that exceeds the configured page cap.
// Check with errors.Is.
var ErrPageLimit = errors.New("pagination page limit reached")

// NetworkKind distinguishes how an attempt failed before an HTTP status
// existed.
type NetworkKind string

// Network failure kinds.
const (
	NetworkConnection NetworkKind = "connection"
	NetworkTimeout    NetworkKind = "timeout"
)

// ValidationError rejects an input client-side, before any network I/O.
// Attempts consumed is always zero.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NetworkError is a failed attempt with no HTTP response: the connection
// never established or the per-attempt timeout fired. Both kinds are
// retryable; this value surfaces once the attempt budget is spent.
type NetworkError struct {
	Kind     NetworkKind
	URL      string
	Attempts int
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s failure for %s after %d attempt(s): %v", e.Kind, e.URL, e.Attempts, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// RetryableHTTPError is a 429 or 5xx that survived the whole attempt budget.
type RetryableHTTPError struct {
	StatusCode int
	URL        string
	Detail     string
	Attempts   int
}

func (e *RetryableHTTPError) Error() string {
	return fmt.Sprintf("HTTP %d from %s after %d attempt(s): %s", e.StatusCode, e.URL, e.Attempts, e.Detail)
}

// TerminalHTTPError is a non-retryable 4xx. Detail carries the backend's
// response text verbatim so callers can surface the exact reason.
type TerminalHTTPError struct {
	StatusCode int
	URL        string
	Detail     string
	Attempts   int
}

func (e *TerminalHTTPError) Error() string {
	return fmt.Sprintf("HTTP %d from %s: %s", e.StatusCode, e.URL, e.Detail)
}

// MalformedResponseError is a successful HTTP exchange whose body could not
// be decoded: invalid JSON on a 2xx, or an unparsable pagination link.
// Snippet holds a truncated copy of the raw body for diagnosis.
type MalformedResponseError struct {
	StatusCode int
	URL        string
	Snippet    string
	Attempts   int
	Err        error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response from %s (HTTP %d): %v; body: %q", e.URL, e.StatusCode, e.Err, e.Snippet)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// snippetLimit bounds the raw-body excerpt carried by MalformedResponseError.
const snippetLimit = 512

func bodySnippet(body []byte) string {
	if len(body) > snippetLimit {
		return string(body[:snippetLimit])
	}
	return string(body)
}

// Attempts extracts the attempt count carried by any error in the taxonomy.
// Unknown errors report zero.
func Attempts(err error) int {
	var (
		netErr  *NetworkError
		retry   *RetryableHTTPError
		term    *TerminalHTTPError
		malform *MalformedResponseError
	)
	switch {
	case errors.As(err, &netErr):
		return netErr.Attempts
	case errors.As(err, &retry):
		return retry.Attempts
	case errors.As(err, &term):
		return term.Attempts
	case errors.As(err, &malform):
		return malform.Attempts
	}
	return 0
}

// ErrorType names an error's class for tool envelopes and logs.
func ErrorType(err error) string {
	var (
		valErr  *ValidationError
		netErr  *NetworkError
		retry   *RetryableHTTPError
		term    *TerminalHTTPError
		malform *MalformedResponseError
	)
	switch {
	case errors.As(err, &valErr):
		return "validation"
	case errors.As(err, &netErr):
		return "network_" + string(netErr.Kind)
	case errors.As(err, &retry):
		return "retryable_http"
	case errors.As(err, &term):
		return "terminal_http"
	case errors.As(err, &malform):
		return "malformed_response"
	case errors.Is(err, ErrPageLimit):
		return "page_limit"
	}
	return "internal"
}

// StatusCode extracts the HTTP status carried by an error, zero when the
// error never saw a response.
func StatusCode(err error) int {
	var (
		retry   *RetryableHTTPError
		term    *TerminalHTTPError
		malform *MalformedResponseError
	)
	switch {
	case errors.As(err, &retry):
		return retry.StatusCode
	case errors.As(err, &term):
		return term.StatusCode
	case errors.As(err, &malform):
		return malform.StatusCode
	}
	return 0
}
