package testutil

import (
	"bufio"
	"strconv"
	"strings"
	"testing"
)

// SSEEvent represents a parsed Server-Sent Event.
type SSEEvent struct {
	Type string // event: value
	Data string // data: value (multi-line joined with \n)
}

// SSEStream is a fully parsed event stream.
type SSEStream struct {
	// RetryMillis is the last reconnection hint (retry: line) seen on the
	// stream, zero when none was sent.
	RetryMillis int
	Events      []SSEEvent
}

// ParseSSEStream parses an SSE body into its events and stream-level fields.
//
// Handles the W3C SSE rules the chat endpoint relies on:
//   - retry: lines set the stream's reconnection hint
//   - multiple "data:" lines are joined with newline
//   - an empty line terminates an event
//   - data: before event: defaults the type to "message"
//   - comment lines starting with ":" are ignored
func ParseSSEStream(t *testing.T, body string) SSEStream {
	t.Helper()

	var stream SSEStream
	scanner := bufio.NewScanner(strings.NewReader(body))

	var currentEvent SSEEvent
	var dataLines []string
	lineNum := 0

	flush := func() {
		if currentEvent.Type == "" && len(dataLines) == 0 {
			return
		}
		if currentEvent.Type == "" {
			currentEvent.Type = "message"
		}
		currentEvent.Data = strings.Join(dataLines, "\n")
		stream.Events = append(stream.Events, currentEvent)
		currentEvent = SSEEvent{}
		dataLines = nil
	}

	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		switch {
		case strings.HasPrefix(line, "retry: "):
			millis, err := strconv.Atoi(strings.TrimPrefix(line, "retry: "))
			if err != nil {
				t.Fatalf("SSE parse error at line %d: bad retry value %q", lineNum, line)
			}
			stream.RetryMillis = millis

		case strings.HasPrefix(line, "event: "):
			if currentEvent.Type != "" || len(dataLines) > 0 {
				t.Fatalf("SSE parse error at line %d: new event before previous terminated (got %q)", lineNum, line)
			}
			currentEvent.Type = strings.TrimPrefix(line, "event: ")

		case strings.HasPrefix(line, "data: "):
			dataLines = append(dataLines, strings.TrimPrefix(line, "data: "))

		case line == "":
			flush()

		case strings.HasPrefix(line, ":"):
			// comment, ignored

		default:
			t.Fatalf("SSE parse error at line %d: unexpected SSE line: %q", lineNum, line)
		}
	}

	if err := scanner.Err(); err != nil {
		t.Fatalf("SSE scan error: %v", err)
	}
	if currentEvent.Type != "" || len(dataLines) > 0 {
		t.Fatalf("SSE stream ended without terminating event %q (missing empty line)", currentEvent.Type)
	}

	return stream
}

// ParseSSEEvents parses an SSE body and returns just the events.
func ParseSSEEvents(t *testing.T, body string) []SSEEvent {
	t.Helper()
	return ParseSSEStream(t, body).Events
}

// FindEvent finds the first event of a given type. Returns nil if not found.
func FindEvent(events []SSEEvent, eventType string) *SSEEvent {
	for i := range events {
		if events[i].Type == eventType {
			return &events[i]
		}
	}
	return nil
}

// FindAllEvents finds all events of a given type.
func FindAllEvents(events []SSEEvent, eventType string) []SSEEvent {
	var found []SSEEvent
	for _, e := range events {
		if e.Type == eventType {
			found = append(found, e)
		}
	}
	return found
}
