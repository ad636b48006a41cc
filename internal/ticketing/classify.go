package ticketing

import (
	"net/http"
	"strings"
)

// outcome is the classification of one completed HTTP attempt.
type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeRetryable
	outcomeTerminal
)

// callOptions adjust classification per operation.
type callOptions struct {
	// successOn409 treats 409 Conflict as success. Only create sets this:
	// a duplicate submit after a retried write means the ticket exists.
	successOn409 bool
}

// classifyStatus maps an HTTP status to an outcome.
//
//   - 2xx: success
//   - 409 with the create override: success
//   - 429 and 5xx: retryable
//   - every other status: terminal
func classifyStatus(status int, opts callOptions) outcome {
	switch {
	case status >= 200 && status <= 299:
		return outcomeSuccess
	case status == http.StatusConflict && opts.successOn409:
		return outcomeSuccess
	case status == http.StatusTooManyRequests:
		return outcomeRetryable
	case status >= 500 && status <= 599:
		return outcomeRetryable
	default:
		return outcomeTerminal
	}
}

// responseDetail renders a response body for error reporting: trimmed but
// otherwise verbatim, so backend messages like
// "Ticket with id '42' was not found." survive unchanged.
func responseDetail(body []byte) string {
	return strings.TrimSpace(string(body))
}
