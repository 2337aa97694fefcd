package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Gate outcomes
const (
	OutcomeAuthenticated = "authenticated"
	OutcomeAnonymous     = "anonymous"
	OutcomeRejected      = "rejected"
	OutcomeRedirectLogin = "redirect_login"
	OutcomeDenied        = "denied"
	OutcomeAllowed       = "allowed"
)

var (
	// GateDecisions counts gate outcomes.
	// Labels:
	//   - surface: "api" or "page"
	//   - outcome: one of the Outcome* constants
	GateDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skyfleet_gate_decisions_total",
			Help: "Total number of edge identity decisions",
		},
		[]string{"surface", "outcome"},
	)

	// GuardDecisions counts route authorization outcomes per action
	GuardDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skyfleet_guard_decisions_total",
			Help: "Total number of route authorization decisions",
		},
		[]string{"action", "outcome"},
	)

	// IdentityResolveDuration measures token verification plus profile lookup
	IdentityResolveDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "skyfleet_identity_resolve_duration_seconds",
			Help:    "Duration of identity resolution in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	// HTTPRequests counts served requests by route pattern
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skyfleet_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPDuration measures request latency by route pattern
	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "skyfleet_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// ObserveResolve records one identity resolution that started at start
func ObserveResolve(start time.Time) {
	IdentityResolveDuration.Observe(time.Since(start).Seconds())
}

// InstrumentHTTP records request counts and latency. Routes are labelled by
// their chi pattern so ids do not explode cardinality.
func InstrumentHTTP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
