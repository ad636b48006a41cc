package ticketing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juan-s-cruz/ai-my-tickets/internal/log"
)

func TestDefaultRetryPolicy(t *testing.T) {
	policy := DefaultRetryPolicy()
	assert.Equal(t, 6, policy.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, policy.InitialBackoff)
	assert.Equal(t, 15*time.Second, policy.MaxBackoff)
	assert.Equal(t, 2.0, policy.Multiplier)
}

func TestRetryPolicyBackoff(t *testing.T) {
	standard := DefaultRetryPolicy()

	tests := []struct {
		name    string
		policy  RetryPolicy
		attempt int
		want    time.Duration
	}{
		{name: "first wait is the initial backoff", policy: standard, attempt: 1, want: 500 * time.Millisecond},
		{name: "second wait doubles", policy: standard, attempt: 2, want: time.Second},
		{name: "third wait doubles again", policy: standard, attempt: 3, want: 2 * time.Second},
		{name: "fifth wait still under the cap", policy: standard, attempt: 5, want: 8 * time.Second},
		{name: "sixth wait clamps to the cap", policy: standard, attempt: 6, want: 15 * time.Second},
		{name: "far attempts stay at the cap", policy: standard, attempt: 40, want: 15 * time.Second},
		{
			name:    "unit multiplier keeps waits constant",
			policy:  RetryPolicy{MaxAttempts: 5, InitialBackoff: 200 * time.Millisecond, MaxBackoff: 10 * time.Second, Multiplier: 1.0},
			attempt: 4,
			want:    200 * time.Millisecond,
		},
		{
			name:    "wait never drops below the initial backoff",
			policy:  RetryPolicy{MaxAttempts: 5, InitialBackoff: time.Second, MaxBackoff: 2 * time.Second, Multiplier: 1.0},
			attempt: 1,
			want:    time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.policy.backoff(tt.attempt))
		})
	}
}

// The waits between real HTTP exchanges must follow the configured curve.
func TestRetryWaitsGrowBetweenAttempts(t *testing.T) {
	const initial = 40 * time.Millisecond

	timestamps := make(chan time.Time, 3)
	server := newRecordingServer(t, timestamps)
	defer server.Close()

	client, err := New(Config{
		BaseURL: server.URL + "/api/tickets",
		Policy:  RetryPolicy{MaxAttempts: 3, InitialBackoff: initial, MaxBackoff: time.Second, Multiplier: 2.0},
		Timeout: 2 * time.Second,
		Logger:  log.NewNop(),
	})
	require.NoError(t, err)

	_, err = client.FetchTicket(context.Background(), FetchRequest{TicketID: "1"})
	require.Error(t, err)

	require.Len(t, timestamps, 3)
	first := <-timestamps
	second := <-timestamps
	third := <-timestamps

	assert.GreaterOrEqual(t, second.Sub(first), initial, "first wait shorter than the initial backoff")
	assert.GreaterOrEqual(t, third.Sub(second), 2*initial, "second wait did not grow")
}

// newRecordingServer returns a server that records each request's arrival
// time and always answers 503.
func newRecordingServer(t *testing.T, timestamps chan<- time.Time) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		timestamps <- time.Now()
		writeDisruption(w)
	}))
}

// Cancellation during a backoff wait stops the loop before the next attempt.
func TestRetryCancelDuringBackoff(t *testing.T) {
	var calls atomic.Int32
	server := countingServer(t, &calls, func(w http.ResponseWriter, r *http.Request) {
		writeDisruption(w)
	})
	defer server.Close()

	client, err := New(Config{
		BaseURL: server.URL + "/api/tickets",
		Policy:  RetryPolicy{MaxAttempts: 5, InitialBackoff: 5 * time.Second, MaxBackoff: 30 * time.Second, Multiplier: 2.0},
		Timeout: 2 * time.Second,
		Logger:  log.NewNop(),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err = client.FetchTicket(ctx, FetchRequest{TicketID: "1"})
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, elapsed, time.Second, "cancellation should interrupt the wait, not ride it out")
	assert.Equal(t, int32(1), calls.Load(), "no further attempts after cancellation")
}

// Cancellation while a request is in flight aborts that attempt.
func TestRetryCancelInFlightAttempt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, fastPolicy(3))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := client.FetchTicket(ctx, FetchRequest{TicketID: "1"})
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, elapsed, time.Second)
}

// A server slower than the per-attempt timeout yields a timeout-kind network
// error, and every attempt in the budget gets its own try.
func TestRetryPerAttemptTimeout(t *testing.T) {
	var calls atomic.Int32
	server := countingServer(t, &calls, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	})
	defer server.Close()

	client, err := New(Config{
		BaseURL: server.URL + "/api/tickets",
		Policy:  fastPolicy(2),
		Timeout: 50 * time.Millisecond,
		Logger:  log.NewNop(),
	})
	require.NoError(t, err)

	_, err = client.FetchTicket(context.Background(), FetchRequest{TicketID: "1"})
	require.Error(t, err)

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, NetworkTimeout, netErr.Kind)
	assert.Equal(t, 2, netErr.Attempts)
	assert.Equal(t, int32(2), calls.Load())
}

// A dead endpoint yields a connection-kind network error after the full
// attempt budget.
func TestRetryConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	serverURL := server.URL
	server.Close() // free the port so dials are refused

	client := newTestClient(t, serverURL, fastPolicy(3))

	_, err := client.FetchTicket(context.Background(), FetchRequest{TicketID: "1"})
	require.Error(t, err)

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, NetworkConnection, netErr.Kind)
	assert.Equal(t, 3, netErr.Attempts)
}

// 192.0.2.0/24 is TEST-NET-1, reserved and unroutable: requests there never
// complete, which exercises the dial-failure path end to end.
func TestRetryUnroutableHost(t *testing.T) {
	client, err := New(Config{
		BaseURL: "http://192.0.2.1:9999/api/tickets",
		Policy:  fastPolicy(2),
		Timeout: 100 * time.Millisecond,
		Logger:  log.NewNop(),
	})
	require.NoError(t, err)

	_, err = client.FetchTicket(context.Background(), FetchRequest{TicketID: "1"})
	require.Error(t, err)

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, 2, netErr.Attempts)
}
