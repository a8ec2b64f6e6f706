// ABOUTME: Prometheus instrumentation for backend calls.
// ABOUTME: Counts calls by endpoint and outcome and records call latency.
package gateway

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels.
const (
	outcomeOK      = "ok"
	outcomeBackend = "backend_error"
	outcomeHTTP    = "http_error"
	outcomeNetwork = "network_error"
)

// Metrics holds the gateway collectors.
type Metrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates and registers the gateway collectors. A nil registerer
// leaves them unregistered, which tests use to avoid global state.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "neurogems",
			Subsystem: "gateway",
			Name:      "calls_total",
			Help:      "Backend calls by endpoint and outcome",
		}, []string{"endpoint", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "neurogems",
			Subsystem: "gateway",
			Name:      "call_duration_seconds",
			Help:      "Backend call latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}
	if reg != nil {
		reg.MustRegister(m.calls, m.duration)
	}
	return m
}

func (m *Metrics) observe(endpoint string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(endpoint, outcomeOf(err)).Inc()
	m.duration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

func outcomeOf(err error) string {
	if err == nil {
		return outcomeOK
	}
	var be *BackendError
	if errors.As(err, &be) {
		return outcomeBackend
	}
	var ae *APIError
	if errors.As(err, &ae) {
		return outcomeHTTP
	}
	return outcomeNetwork
}
