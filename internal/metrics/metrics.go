// Package metrics exposes Prometheus collectors for the web client.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dtmoney/internal/form"
	"dtmoney/internal/validation"
)

const namespace = "dtmoney"

// Submission results.
const (
	SubmitCreated = "created"
	SubmitInvalid = "invalid"
	SubmitFailed  = "failed"
	SubmitBusy    = "busy"
)

// Metrics groups the collectors registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	apiRequests    *prometheus.CounterVec
	apiDuration    *prometheus.HistogramVec
	submissions    *prometheus.CounterVec
	activeSessions prometheus.Gauge
	httpRequests   *prometheus.CounterVec
	rateLimited    prometheus.Counter
}

// New registers every collector, plus the Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Calls to the transactions API by operation and HTTP status.",
		}, []string{"op", "status"}),
		apiDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "Latency of calls to the transactions API.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "form_submissions_total",
			Help:      "Creation form submissions by result.",
		}, []string{"result"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Client sessions currently held in memory.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served by method and status code.",
		}, []string{"method", "code"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_requests_total",
			Help:      "POST requests rejected by the per-client rate limiter.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.apiRequests,
		m.apiDuration,
		m.submissions,
		m.activeSessions,
		m.httpRequests,
		m.rateLimited,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry is exposed for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveAPI has the apiclient.Observer signature.
func (m *Metrics) ObserveAPI(op string, status int, elapsed time.Duration, err error) {
	label := strconv.Itoa(status)
	if status == 0 {
		label = "error"
	}
	m.apiRequests.WithLabelValues(op, label).Inc()
	m.apiDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// ObserveSubmit classifies the outcome of a form submission.
func (m *Metrics) ObserveSubmit(err error) {
	m.submissions.WithLabelValues(SubmitResult(err)).Inc()
}

// SubmitResult maps a Submit error to a result label.
func SubmitResult(err error) string {
	switch {
	case err == nil:
		return SubmitCreated
	case errors.Is(err, form.ErrSubmitInProgress):
		return SubmitBusy
	}
	if _, ok := validation.AsErrors(err); ok {
		return SubmitInvalid
	}
	return SubmitFailed
}

// SessionOpened and SessionClosed track the active sessions gauge.
func (m *Metrics) SessionOpened() { m.activeSessions.Inc() }

func (m *Metrics) SessionClosed() { m.activeSessions.Dec() }

// ObserveHTTP counts a served request.
func (m *Metrics) ObserveHTTP(method string, code int) {
	m.httpRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
}

// ObserveRateLimited counts a request rejected with 429.
func (m *Metrics) ObserveRateLimited() { m.rateLimited.Inc() }
