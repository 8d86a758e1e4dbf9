// Package metrics records management API traffic in Prometheus.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Request outcomes used as the "outcome" label.
const (
	OutcomeSuccess      = "success"
	OutcomeServiceError = "service_error"
	OutcomeDecodeError  = "decode_error"
	OutcomeFailure      = "failure"
)

// Metrics holds the adapter's collectors. A nil *Metrics records nothing.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	signaturesTotal *prometheus.CounterVec
	pollAttempts    prometheus.Histogram
}

var (
	defaultMetrics *Metrics
	metricsOnce    sync.Once
)

// Default returns the collectors registered with the default Prometheus
// registry, creating them on first use.
func Default() *Metrics {
	metricsOnce.Do(func() {
		defaultMetrics = New(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

// New creates the collectors and registers them with reg. It panics if they
// are already registered there.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "azadapter_requests_total",
				Help: "Total number of management API requests by method and outcome",
			},
			[]string{"method", "outcome"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "azadapter_request_duration_seconds",
				Help:    "Duration of management API requests in seconds",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 30, 120},
			},
			[]string{"method"},
		),
		signaturesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "azadapter_signatures_total",
				Help: "Total number of shared key signatures computed",
			},
			[]string{"status"},
		),
		pollAttempts: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "azadapter_poll_attempts",
				Help:    "Number of attempts taken by completed polls",
				Buckets: []float64{1, 2, 5, 10, 20, 30},
			},
		),
	}
}

// RecordRequest records one finished request.
func (m *Metrics) RecordRequest(method, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(method, outcome).Inc()
	m.requestDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// RecordSignature records a signing attempt.
func (m *Metrics) RecordSignature(ok bool) {
	if m == nil {
		return
	}
	status := "success"
	if !ok {
		status = "failure"
	}
	m.signaturesTotal.WithLabelValues(status).Inc()
}

// RecordPoll records how many attempts a poll took.
func (m *Metrics) RecordPoll(attempts int) {
	if m == nil {
		return
	}
	m.pollAttempts.Observe(float64(attempts))
}
