package ticketing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
)

// maxBodyBytes caps how much of a response body gets read. The backend's
// payloads are small; anything past this is truncated rather than buffered.
const maxBodyBytes = 1 << 20

// attemptResult is the raw product of one HTTP exchange.
type attemptResult struct {
	status int
	body   []byte
	url    string
}

// send performs exactly one HTTP attempt for r. The per-attempt timeout
// is layered onto ctx; failures with no HTTP response come back as
// *NetworkError unless the caller's context itself ended.
func (c *Client) send(ctx context.Context, r *builtRequest) (*attemptResult, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}

	req, err := http.NewRequestWithContext(attemptCtx, r.method, r.url, body)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", r.url, err)
	}

	for k, vs := range r.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	// Default negotiation only: an explicit Accept always wins.
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		// The caller's context ending is not a network condition; report
		// it as-is so the retry loop stops instead of burning budget.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &NetworkError{Kind: networkKind(err), URL: r.url, Err: err}
	}
	defer func() { _ = res.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &NetworkError{Kind: networkKind(err), URL: r.url, Err: err}
	}

	return &attemptResult{
		status: res.StatusCode,
		body:   data,
		url:    res.Request.URL.String(),
	}, nil
}

// networkKind tells timeouts apart from connection failures. The per-attempt
// deadline surfaces as context.DeadlineExceeded inside a url.Error; dial and
// reset failures report as generic errors.
func networkKind(err error) NetworkKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return NetworkTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NetworkTimeout
	}
	return NetworkConnection
}
