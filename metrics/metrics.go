// Package metrics exposes Prometheus counters and histograms for the wire
// engine: requests dispatched, redirects followed, keep-alive reconnects,
// protocol errors, and request/response body sizes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles every counter/histogram the engine updates during a send.
//
// A *Metrics constructed with New registers its collectors with the supplied
// prometheus.Registerer (pass prometheus.DefaultRegisterer for the global
// registry, or a fresh prometheus.NewRegistry() in tests to avoid collisions
// between parallel test packages). A nil *Metrics is valid: every method is a
// no-op, mirroring logger.Logger's nil-safety so callers can leave
// observability unconfigured.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	redirectsTotal  prometheus.Counter
	reconnectsTotal prometheus.Counter
	protocolErrors  *prometheus.CounterVec
	requestBytes    prometheus.Histogram
	responseBytes   prometheus.Histogram
}

// New creates a Metrics instance and registers its collectors with reg. If
// reg is nil, prometheus.DefaultRegisterer is used.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mvnet",
			Name:      "requests_total",
			Help:      "Number of requests dispatched, labelled by outcome (success|failed).",
		}, []string{"outcome"}),
		redirectsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mvnet",
			Name:      "redirects_followed_total",
			Help:      "Number of redirect hops followed across all requests.",
		}),
		reconnectsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mvnet",
			Name:      "keepalive_reconnects_total",
			Help:      "Number of silent and fail-reconnect re-opens of the connection slot.",
		}),
		protocolErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mvnet",
			Name:      "protocol_errors_total",
			Help:      "Number of failed requests, labelled by error kind.",
		}, []string{"kind"}),
		requestBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mvnet",
			Name:      "request_body_bytes",
			Help:      "Size in bytes of request bodies written to the wire.",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 10),
		}),
		responseBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mvnet",
			Name:      "response_body_bytes",
			Help:      "Size in bytes of response bodies read from the wire (post-decode).",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 10),
		}),
	}

	reg.MustRegister(m.requestsTotal, m.redirectsTotal, m.reconnectsTotal, m.protocolErrors, m.requestBytes, m.responseBytes)
	return m
}

// ObserveSuccess records a successfully completed request.
func (m *Metrics) ObserveSuccess() {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues("success").Inc()
}

// ObserveFailure records a request that ended in an error.
func (m *Metrics) ObserveFailure() {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues("failed").Inc()
}

// ObserveRedirect records one followed redirect hop.
func (m *Metrics) ObserveRedirect() {
	if m == nil {
		return
	}
	m.redirectsTotal.Inc()
}

// ObserveReconnect records one connection-slot re-open (silent or fail-reconnect).
func (m *Metrics) ObserveReconnect() {
	if m == nil {
		return
	}
	m.reconnectsTotal.Inc()
}

// ObserveProtocolError records an error of the given kind (e.g. "connect",
// "send", "receive", "protocol", "proxy", "cookie", "input").
func (m *Metrics) ObserveProtocolError(kind string) {
	if m == nil {
		return
	}
	m.protocolErrors.WithLabelValues(kind).Inc()
}

// ObserveRequestBytes records the size of a request body written to the wire.
func (m *Metrics) ObserveRequestBytes(n int) {
	if m == nil {
		return
	}
	m.requestBytes.Observe(float64(n))
}

// ObserveResponseBytes records the size of a decoded response body.
func (m *Metrics) ObserveResponseBytes(n int) {
	if m == nil {
		return
	}
	m.responseBytes.Observe(float64(n))
}
