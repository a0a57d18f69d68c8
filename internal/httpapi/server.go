// Package httpapi serves the polling dashboard: sensor telemetry reads, a
// direct-write sensor endpoint, the derived irrigation state and the
// account endpoints.
package httpapi

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"garden-monitor/internal/irrigation"
	"garden-monitor/internal/observability/metrics"
	"garden-monitor/internal/storage"
)

const requestTimeout = 5 * time.Second

// Options tunes the store-read circuit breaker.
type Options struct {
	BreakerFailures uint32
	BreakerOpenFor  time.Duration
}

// Server holds the injected dependencies of the HTTP surface. It is
// stateless per request apart from the irrigation keeper.
type Server struct {
	store   storage.Store
	keeper  *irrigation.Keeper
	breaker *gobreaker.CircuitBreaker
	now     func() time.Time
}

func NewServer(store storage.Store, keeper *irrigation.Keeper, opts Options) *Server {
	if opts.BreakerFailures == 0 {
		opts.BreakerFailures = 5
	}
	if opts.BreakerOpenFor <= 0 {
		opts.BreakerOpenFor = 10 * time.Second
	}
	return &Server{
		store:  store,
		keeper: keeper,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "sensor-store",
			Timeout: opts.BreakerOpenFor,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= opts.BreakerFailures
			},
		}),
		now: time.Now,
	}
}

// Routes registers the API endpoints on a fresh mux. Health and metrics are
// composed by the caller.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/sensors", instrument("/api/sensors", s.handleSensors))
	mux.HandleFunc("/api/sensors/irrigation", instrument("/api/sensors/irrigation", s.handleIrrigation))
	mux.HandleFunc("/api/auth/register", instrument("/api/auth/register", s.handleRegister))
	mux.HandleFunc("/api/auth/login", instrument("/api/auth/login", s.handleLogin))
	return mux
}

// instrument counts requests per endpoint and status code.
func instrument(endpoint string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		h(rec, r)
		metrics.IncAPIRequest(endpoint, rec.code)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: response encode error: %v", err)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}
