package ticketsim

import (
	"math/rand/v2"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/juan-s-cruz/ai-my-tickets/internal/log"
)

// DisruptionBody is the plain-text payload of a simulated outage. No
// trailing newline; clients match on the exact bytes.
const DisruptionBody = "ERROR 503: Simulated service disruption. Please retry."

// Disruption injects latency and random 503 failures in front of the API
// routes, leaving everything else untouched. It is what makes the
// simulator worth retrying against.
type Disruption struct {
	failureRate float64
	minLatency  time.Duration
	maxLatency  time.Duration
	logger      log.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// DisruptionConfig controls failure injection.
type DisruptionConfig struct {
	// FailureRate is the probability in [0, 1] that a request is answered
	// with a 503 before reaching the handler.
	FailureRate float64

	// MinLatency and MaxLatency bound the uniform artificial delay added
	// to every API request. Zero values disable the delay.
	MinLatency time.Duration
	MaxLatency time.Duration

	// Seed fixes the random sequence; zero seeds from the clock.
	Seed uint64

	Logger log.Logger
}

// NewDisruption creates the failure-injection middleware.
func NewDisruption(cfg DisruptionConfig) *Disruption {
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	maxLatency := cfg.MaxLatency
	if maxLatency < cfg.MinLatency {
		maxLatency = cfg.MinLatency
	}
	return &Disruption{
		failureRate: cfg.FailureRate,
		minLatency:  cfg.MinLatency,
		maxLatency:  maxLatency,
		logger:      logger,
		rng:         rand.New(rand.NewPCG(seed, seed)),
	}
}

// Wrap gates next behind latency and random failures for API paths.
func (d *Disruption) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isAPIPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		if delay := d.delay(); delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}

		if d.roll() {
			d.logger.Debug("simulated disruption", "path", r.URL.Path)
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(DisruptionBody))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func isAPIPath(path string) bool {
	return path == "/api" || strings.HasPrefix(path, "/api/")
}

// delay picks a uniform latency in [minLatency, maxLatency].
func (d *Disruption) delay() time.Duration {
	if d.maxLatency <= 0 {
		return 0
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	span := d.maxLatency - d.minLatency
	if span <= 0 {
		return d.minLatency
	}
	return d.minLatency + time.Duration(d.rng.Int64N(int64(span)))
}

// roll decides whether this request fails.
func (d *Disruption) roll() bool {
	if d.failureRate <= 0 {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rng.Float64() < d.failureRate
}
