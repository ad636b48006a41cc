package agent

import "errors"

// Sentinel errors for agent operations.
// Only errors that are checked with errors.Is() are defined here.
var (
	// ErrInvalidSession indicates the session ID is missing or malformed.
	// The HTTP layer maps it to a 400.
	ErrInvalidSession = errors.New("invalid session")

	// ErrExecutionFailed indicates the conversational run itself failed.
	ErrExecutionFailed = errors.New("execution failed")
)
