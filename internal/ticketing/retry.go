package ticketing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// RetryPolicy drives the retry loop for one call. It is a plain value:
// callers hold it, pass it, and can swap it per call site. The zero value is
// not usable; take DefaultRetryPolicy and adjust.
type RetryPolicy struct {
	// MaxAttempts is the total attempt ceiling, counting the first try.
	// 6 means at most six HTTP exchanges for one call.
	MaxAttempts int

	// InitialBackoff is the wait before the second attempt and the floor
	// for every wait after it.
	InitialBackoff time.Duration

	// MaxBackoff caps the exponential growth.
	MaxBackoff time.Duration

	// Multiplier scales the wait from one attempt to the next.
	Multiplier float64
}

// DefaultRetryPolicy returns the policy used when a Config leaves Policy
// zero: six total attempts, waits growing 500ms, 1s, 2s, 4s, 8s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    6,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     15 * time.Second,
		Multiplier:     2.0,
	}
}

// backoff returns the wait after a failed attempt n (1-based):
// InitialBackoff * Multiplier^(n-1), clamped to
// [InitialBackoff, MaxBackoff].
func (p RetryPolicy) backoff(attempt int) time.Duration {
	d := float64(p.InitialBackoff) * math.Pow(p.Multiplier, float64(attempt-1))
	if d > float64(p.MaxBackoff) {
		return p.MaxBackoff
	}
	if d < float64(p.InitialBackoff) {
		return p.InitialBackoff
	}
	return time.Duration(d)
}

// isZero reports whether the policy was left unset.
func (p RetryPolicy) isZero() bool {
	return p.MaxAttempts == 0 && p.InitialBackoff == 0 && p.MaxBackoff == 0 && p.Multiplier == 0
}

// do executes r until success, a terminal outcome, budget exhaustion, or
// context end. It returns the successful attempt's result and the number of
// attempts consumed; every returned error carries that same count.
func (c *Client) do(ctx context.Context, r *builtRequest, opts callOptions) (*attemptResult, int, error) {
	var lastErr error
	start := time.Now()

	for attempt := 1; ; attempt++ {
		// Throttle every attempt, not just the first: retries of a
		// struggling backend must not stampede it.
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, attempt - 1, fmt.Errorf("rate limit wait: %w", err)
			}
		}

		res, err := c.send(ctx, r)
		if err == nil {
			switch classifyStatus(res.status, opts) {
			case outcomeSuccess:
				c.logger.Debug("call succeeded",
					"url", r.url,
					"status", res.status,
					"attempts", attempt,
					"elapsed", time.Since(start),
				)
				return res, attempt, nil

			case outcomeTerminal:
				return nil, attempt, &TerminalHTTPError{
					StatusCode: res.status,
					URL:        res.url,
					Detail:     responseDetail(res.body),
					Attempts:   attempt,
				}

			case outcomeRetryable:
				lastErr = &RetryableHTTPError{
					StatusCode: res.status,
					URL:        res.url,
					Detail:     responseDetail(res.body),
				}
			}
		} else {
			// The caller's context ending aborts the call regardless of
			// remaining budget.
			if ctx.Err() != nil {
				return nil, attempt, fmt.Errorf("call canceled during attempt %d: %w", attempt, ctx.Err())
			}

			var netErr *NetworkError
			if !errors.As(err, &netErr) {
				// Request construction failures are not retryable.
				return nil, attempt, err
			}
			lastErr = netErr
		}

		// Budget spent: surface the last classified failure.
		if attempt >= c.policy.MaxAttempts {
			setAttempts(lastErr, attempt)
			c.logger.Warn("call failed, attempt budget exhausted",
				"url", r.url,
				"attempts", attempt,
				"elapsed", time.Since(start),
				"error", lastErr,
			)
			return nil, attempt, lastErr
		}

		wait := c.policy.backoff(attempt)
		c.logger.Debug("retrying after failure",
			"url", r.url,
			"attempt", attempt,
			"max_attempts", c.policy.MaxAttempts,
			"wait", wait,
			"error", lastErr,
		)

		select {
		case <-ctx.Done():
			return nil, attempt, fmt.Errorf("call canceled during backoff after attempt %d: %w", attempt, ctx.Err())
		case <-time.After(wait):
		}
	}
}

// setAttempts stamps the consumed budget onto a classified failure.
func setAttempts(err error, attempts int) {
	switch e := err.(type) {
	case *NetworkError:
		e.Attempts = attempts
	case *RetryableHTTPError:
		e.Attempts = attempts
	}
}
