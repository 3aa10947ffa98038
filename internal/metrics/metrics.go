// Package metrics exposes Prometheus instrumentation for the registry's
// request surface.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registration outcomes.
const (
	OutcomeRegistered = "registered"
	OutcomeRejected   = "already_registered"
	OutcomeInvalid    = "invalid_input"
	OutcomeDenied     = "unauthorized"
	OutcomeError      = "error"
)

// Metrics tracks registrations, verifications and request latency.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registrations   *prometheus.CounterVec
	Verifications   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// New creates a Metrics instance registered with reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Registrations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ipp_registrations_total",
			Help: "Registration attempts by record kind and outcome",
		}, []string{"kind", "outcome"}),
		Verifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ipp_verifications_total",
			Help: "Authorship lookups by outcome (verified, mismatch, not_found, error)",
		}, []string{"outcome"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ipp_http_request_duration_seconds",
			Help:    "Duration of HTTP requests by route and status code",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"route", "status"}),
	}
}

// IncrementRegistration records one registration attempt.
func (m *Metrics) IncrementRegistration(kind, outcome string) {
	if m == nil {
		return
	}
	m.Registrations.WithLabelValues(kind, outcome).Inc()
}

// IncrementVerification records one lookup outcome.
func (m *Metrics) IncrementVerification(outcome string) {
	if m == nil {
		return
	}
	m.Verifications.WithLabelValues(outcome).Inc()
}

// ObserveRequest records the duration of an HTTP request.
// Call with time.Now() at the start of the request.
func (m *Metrics) ObserveRequest(route, status string, start time.Time) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(route, status).Observe(time.Since(start).Seconds())
}
