// Package ticketing is the resilient client for the ticket backend.
//
// The backend is deliberately unreliable: it injects random latency and
// intermittent 503s on every API route. This package absorbs that instability
// so callers (the agent tool layer, the MCP server) see either a decoded
// result or one structured error.
//
// The package separates five concerns:
//
//   - request builders: pure construction plus client-side validation, so a
//     bad input never reaches the network
//   - transport: exactly one HTTP attempt with a per-attempt timeout
//   - classifier: maps one attempt to success, retryable, or terminal
//   - retry: an explicit RetryPolicy value driving exponential backoff with a
//     literal total-attempt ceiling
//   - pagination: a bounded walk over DRF-style next links
//
// Every error carries the number of attempts actually consumed. All
// operations accept a context that cancels in-flight attempts, backoff
// waits, and pagination walks.
package ticketing
