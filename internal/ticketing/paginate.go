package ticketing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
)

// walkPages follows next links from the first page until the chain ends,
// the page cap trips, or the context ends. Results aggregate in backend
// order; on any failure the partial aggregate is discarded.
//
// The returned CallInfo sums attempts across all pages and keeps the first
// page's URL, since that is the call the caller made.
func (c *Client) walkPages(ctx context.Context, first *builtRequest) (*ListResult, error) {
	var aggregated []Ticket
	totalAttempts := 0
	pages := 0
	lastStatus := 0
	cur := first

	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("pagination canceled after %d page(s): %w", pages, err)
		}
		if pages >= c.maxPages {
			return nil, fmt.Errorf("%w: walked %d pages from %s", ErrPageLimit, pages, first.url)
		}

		res, attempts, err := c.do(ctx, cur, callOptions{})
		totalAttempts += attempts
		if err != nil {
			// The error reports budget for the whole walk, not just the
			// page that failed.
			setWalkAttempts(err, totalAttempts)
			return nil, err
		}

		var page TicketPage
		if err := json.Unmarshal(res.body, &page); err != nil {
			return nil, malformed(res, totalAttempts, err)
		}

		aggregated = append(aggregated, page.Results...)
		pages++
		lastStatus = res.status

		if page.Next == nil || *page.Next == "" {
			break
		}

		next, err := url.Parse(*page.Next)
		if err != nil || next.Scheme == "" || next.Host == "" {
			return nil, &MalformedResponseError{
				StatusCode: res.status,
				URL:        res.url,
				Snippet:    *page.Next,
				Attempts:   totalAttempts,
				Err:        errors.New("next link is not an absolute URL"),
			}
		}

		c.logger.Debug("following pagination link",
			"page", pages+1,
			"url", next.String(),
			"aggregated", len(aggregated),
		)
		cur = cur.clone(next.String())
	}

	return &ListResult{
		CallInfo: CallInfo{StatusCode: lastStatus, URL: first.url, Attempts: totalAttempts},
		Page: TicketPage{
			Count:   len(aggregated),
			Results: aggregated,
		},
		PagesWalked: pages,
	}, nil
}

// setWalkAttempts restamps an error from one page with the attempts spent
// across the whole walk.
func setWalkAttempts(err error, attempts int) {
	var (
		netErr  *NetworkError
		retry   *RetryableHTTPError
		term    *TerminalHTTPError
		malform *MalformedResponseError
	)
	switch {
	case errors.As(err, &netErr):
		netErr.Attempts = attempts
	case errors.As(err, &retry):
		retry.Attempts = attempts
	case errors.As(err, &term):
		term.Attempts = attempts
	case errors.As(err, &malform):
		malform.Attempts = attempts
	}
}
