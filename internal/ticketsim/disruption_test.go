package ticketsim

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler(calls *int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			*calls++
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestDisruptionAlwaysFails(t *testing.T) {
	d := NewDisruption(DisruptionConfig{FailureRate: 1, Seed: 1})
	wrapped := d.Wrap(okHandler(nil))

	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tickets/1", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	// Exact bytes, no trailing newline: clients surface this body verbatim.
	assert.Equal(t, DisruptionBody, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
}

func TestDisruptionZeroRatePassesThrough(t *testing.T) {
	calls := 0
	d := NewDisruption(DisruptionConfig{FailureRate: 0, Seed: 1})
	wrapped := d.Wrap(okHandler(&calls))

	for range 10 {
		rec := httptest.NewRecorder()
		wrapped.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tickets", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Equal(t, 10, calls)
}

func TestDisruptionSkipsNonAPIPaths(t *testing.T) {
	calls := 0
	d := NewDisruption(DisruptionConfig{FailureRate: 1, Seed: 1})
	wrapped := d.Wrap(okHandler(&calls))

	for _, path := range []string{"/health", "/", "/apiary"} {
		rec := httptest.NewRecorder()
		wrapped.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, "path %s", path)
	}
	assert.Equal(t, 3, calls)

	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code, "/api itself is gated")
}

func TestDisruptionSeedMakesFailuresReproducible(t *testing.T) {
	sequence := func(seed uint64) []int {
		d := NewDisruption(DisruptionConfig{FailureRate: 0.5, Seed: seed})
		wrapped := d.Wrap(okHandler(nil))
		codes := make([]int, 0, 20)
		for range 20 {
			rec := httptest.NewRecorder()
			wrapped.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tickets", nil))
			codes = append(codes, rec.Code)
		}
		return codes
	}

	assert.Equal(t, sequence(42), sequence(42))
}

func TestDisruptionLatencyBounds(t *testing.T) {
	d := NewDisruption(DisruptionConfig{Seed: 1})
	assert.Equal(t, time.Duration(0), d.delay(), "no latency configured")

	d = NewDisruption(DisruptionConfig{MinLatency: 5 * time.Millisecond, MaxLatency: 5 * time.Millisecond, Seed: 1})
	assert.Equal(t, 5*time.Millisecond, d.delay())

	d = NewDisruption(DisruptionConfig{MinLatency: 2 * time.Millisecond, MaxLatency: 8 * time.Millisecond, Seed: 1})
	for range 50 {
		got := d.delay()
		require.GreaterOrEqual(t, got, 2*time.Millisecond)
		require.Less(t, got, 8*time.Millisecond)
	}
}

func TestDisruptionLatencyStopsOnCanceledRequest(t *testing.T) {
	calls := 0
	d := NewDisruption(DisruptionConfig{MinLatency: time.Minute, MaxLatency: time.Minute, Seed: 1})
	wrapped := d.Wrap(okHandler(&calls))

	req := httptest.NewRequest(http.MethodGet, "/api/tickets", nil)
	ctx, cancel := context.WithCancel(req.Context())
	cancel()
	req = req.WithContext(ctx)

	start := time.Now()
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)

	assert.Less(t, time.Since(start), time.Second, "canceled request must not wait out the latency")
	assert.Equal(t, 0, calls, "handler never runs for an abandoned request")
}
