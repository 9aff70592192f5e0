package metrics

import (
	"encoding/json"
	"net/http"

	"github.com/emberhollow/auth-service/internal/health"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Auth flow metrics

	RegistrationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "auth",
		Name:      "registrations_total",
		Help:      "Total accounts created.",
	})

	LoginsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "auth",
		Name:      "logins_total",
		Help:      "Total login attempts, by method and outcome.",
	}, []string{"method", "outcome"})

	MagicLinksIssuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "auth",
		Name:      "magic_links_issued_total",
		Help:      "Total magic links created and emailed.",
	})

	MagicLinkRedemptionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "auth",
		Name:      "magic_link_redemptions_total",
		Help:      "Total magic link redemption attempts, by outcome.",
	}, []string{"outcome"})

	TokensIssuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "auth",
		Name:      "tokens_issued_total",
		Help:      "Total access tokens signed.",
	})

	LinksPurgedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "auth",
		Name:      "magic_links_purged_total",
		Help:      "Total dead magic links removed by the janitor.",
	})

	// HTTP metrics

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "auth",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "auth",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests.",
	}, []string{"method", "path", "status"})
)

func Register() {
	prometheus.MustRegister(
		RegistrationsTotal,
		LoginsTotal,
		MagicLinksIssuedTotal,
		MagicLinkRedemptionsTotal,
		TokensIssuedTotal,
		LinksPurgedTotal,
		HTTPRequestDuration,
		HTTPRequestsTotal,
	)
}

// NewServer hosts /metrics plus the liveness/readiness probes, off the
// main API port.
func NewServer(addr string, checker *health.Checker) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, checker.Liveness(r.Context()))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		result := checker.Readiness(r.Context())
		status := http.StatusOK
		if result.Status != "up" {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, result)
	})

	return &http.Server{Addr: addr, Handler: mux}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
