// Package tools exposes the ticket API to the model as Genkit tools.
//
// Four tools cover the ticket lifecycle:
//   - fetchTicket: retrieve one ticket by id
//   - listTicketsFiltered: search and filter tickets, optionally across all pages
//   - createTicket: open a new ticket
//   - updateTicket: patch title, description, or resolution status
//
// Every tool answers with the same Result envelope. A call that reached the
// backend and got an answer reports ok=true with the final HTTP status, the
// URL that answered, and the payload. A call that failed reports ok=false and
// a structured Error carrying the failure class, the backend's own message,
// and the attempts consumed, so the model can tell "that ticket does not
// exist" apart from "the backend is down, tell the user to try later".
//
// Tool handlers never return a Go error for backend failures; those surface
// inside the envelope where the model can read them. A Go error from a
// handler means the tool itself is broken.
//
// The Handler methods take a plain context and are shared verbatim by the
// MCP server; the Genkit registration in Register is a thin adapter.
package tools
