// Package session keeps conversation state for the chat API.
//
// A session is one support conversation: an ordered list of messages
// exchanged between the user and the model. The [Store] holds sessions in
// memory; the agent layer decides what goes into a conversation, the store
// only keeps it.
//
// Key operations:
//
//   - Session lifecycle: [Store.CreateSession], [Store.Session], [Store.Sessions], [Store.DeleteSession]
//   - History: [Store.History], [Store.AppendMessages]
//
// # Concurrency
//
// Store is safe for concurrent use. A single mutex guards the session map,
// and every accessor hands out copies, so callers can never observe a
// half-applied append.
//
// # Bounds
//
// Histories are capped: once a session exceeds the configured maximum the
// oldest messages fall off. The cap bounds both memory and the prompt size
// handed to the model.
package session
