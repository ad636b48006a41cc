package cmd

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	"github.com/juan-s-cruz/ai-my-tickets/api"
	"github.com/juan-s-cruz/ai-my-tickets/internal/config"
)

const (
	defaultServerURL = "http://127.0.0.1:8100"

	// chatTimeout bounds one exchange end to end. Generous because the
	// server keeps streaming while the ticket backend rides out retries.
	chatTimeout = 10 * time.Minute
)

// chatResult is one completed exchange.
type chatResult struct {
	SessionID string
	Response  string
}

// runChat sends a single message to a running chat server, streams the
// answer to stdout as it arrives, and appends the exchange to the local
// transcript.
func runChat() error {
	fs := flag.NewFlagSet("chat", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	server := fs.String("server", defaultServerURL, "chat server base URL")
	sessionID := fs.String("session", "", "existing session id to continue")

	// Message first, flags after: chat "where is ticket 5" --session ID.
	args := commandArgs()
	var message string
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		message = args[0]
		args = args[1:]
	}
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parsing chat arguments: %w", err)
	}
	if message == "" && fs.NArg() > 0 {
		message = fs.Arg(0)
	}
	if strings.TrimSpace(message) == "" {
		return errors.New(`usage: chat "message" [--server URL] [--session ID]`)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := &http.Client{Timeout: chatTimeout}
	result, err := streamChat(ctx, client, *server, message, *sessionID, os.Stdout)
	if err != nil {
		return err
	}

	if err := appendTranscript(cfg.TranscriptPath, message, result); err != nil {
		slog.Warn("saving transcript", "error", err, "path", cfg.TranscriptPath)
	}
	return nil
}

// streamChat POSTs one message and renders the streamed answer to out as it
// arrives. The returned result carries the session id from the end event so
// a follow-up call can continue the conversation.
func streamChat(ctx context.Context, client *http.Client, serverURL, message, sessionID string, out io.Writer) (*chatResult, error) {
	payload, err := json.Marshal(api.ChatRequest{Message: message, SessionID: sessionID})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	url := strings.TrimRight(serverURL, "/") + "/api/chat"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reaching chat server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeServerError(resp)
	}
	return consumeStream(resp.Body, out)
}

// decodeServerError turns a non-streaming error response into something
// readable. Validation failures arrive as JSON before the stream starts.
func decodeServerError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var apiErr api.ErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Message != "" {
		return fmt.Errorf("chat server: %s (%s)", apiErr.Message, resp.Status)
	}
	return fmt.Errorf("chat server: %s", resp.Status)
}

// consumeStream parses server-sent events, writing each token delta to out
// the moment it arrives. It returns once the end event is seen; an error
// event aborts the stream.
func consumeStream(r io.Reader, out io.Writer) (*chatResult, error) {
	var (
		result chatResult
		event  string
		data   strings.Builder
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	dispatch := func() (done bool, err error) {
		if event == "" && data.Len() == 0 {
			return false, nil
		}
		defer func() {
			event = ""
			data.Reset()
		}()

		switch event {
		case "token":
			var chunk struct {
				Delta string `json:"delta"`
			}
			if err := json.Unmarshal([]byte(data.String()), &chunk); err != nil {
				return false, fmt.Errorf("decoding token event: %w", err)
			}
			result.Response += chunk.Delta
			fmt.Fprint(out, chunk.Delta)
			return false, nil
		case "end":
			var end struct {
				OK        bool   `json:"ok"`
				SessionID string `json:"session_id"`
			}
			if err := json.Unmarshal([]byte(data.String()), &end); err != nil {
				return false, fmt.Errorf("decoding end event: %w", err)
			}
			result.SessionID = end.SessionID
			fmt.Fprintln(out)
			return true, nil
		case "error":
			var ev struct {
				Message string `json:"message"`
			}
			if err := json.Unmarshal([]byte(data.String()), &ev); err != nil {
				return false, fmt.Errorf("decoding error event: %w", err)
			}
			return false, fmt.Errorf("chat failed: %s", ev.Message)
		default:
			// Comments, reconnect hints, and unknown events are skipped.
			return false, nil
		}
	}

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			done, err := dispatch()
			if err != nil {
				return nil, err
			}
			if done {
				return &result, nil
			}
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data.WriteString(strings.TrimPrefix(line, "data: "))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading stream: %w", err)
	}
	return nil, errors.New("stream ended without an end event")
}

// transcriptEntry is one line of the transcript file.
type transcriptEntry struct {
	Time      time.Time `json:"time"`
	SessionID string    `json:"session_id"`
	Message   string    `json:"message"`
	Response  string    `json:"response"`
}

// appendTranscript records the exchange as a JSON line. A file lock keeps
// concurrent chat invocations from interleaving writes.
func appendTranscript(path, message string, result *chatResult) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating transcript directory: %w", err)
	}

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("locking transcript: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("opening transcript: %w", err)
	}
	defer f.Close()

	entry := transcriptEntry{
		Time:      time.Now().UTC(),
		SessionID: result.SessionID,
		Message:   message,
		Response:  result.Response,
	}
	if err := json.NewEncoder(f).Encode(entry); err != nil {
		return fmt.Errorf("writing transcript: %w", err)
	}
	return nil
}
