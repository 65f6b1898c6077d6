package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of one process.
type Metrics struct {
	registry      *prometheus.Registry
	httpRequests  *prometheus.CounterVec
	httpLatency   *prometheus.HistogramVec
	httpErrors    *prometheus.CounterVec
	commits       *prometheus.CounterVec
	eventsWritten *prometheus.CounterVec
	outbox        *prometheus.CounterVec
	outboxBatch   prometheus.Histogram
	queueDepth    *prometheus.GaugeVec
}

// NewMetrics registers every collector on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		httpErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "HTTP error responses by error code.",
		}, []string{"method", "path", "code"}),
		commits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aggregate_commits_total",
			Help: "Unit of work commits by aggregate type and outcome.",
		}, []string{"aggregate", "outcome"}),
		eventsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "domain_events_committed_total",
			Help: "Domain events written to the outbox by event type.",
		}, []string{"type"}),
		outbox: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "outbox_deliveries_total",
			Help: "Outbox delivery attempts by outcome.",
		}, []string{"outcome"}),
		outboxBatch: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "outbox_batch_size",
			Help:    "Events claimed per relay run.",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 200},
		}),
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "asynq_queue_depth",
			Help: "Asynq queue depth by queue.",
		}, []string{"queue"}),
	}
	m.registry.MustRegister(m.httpRequests, m.httpLatency, m.httpErrors, m.commits, m.eventsWritten, m.outbox, m.outboxBatch, m.queueDepth)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// RecordRequest counts a request and observes its latency.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.httpRequests.WithLabelValues(method, path, code).Inc()
	m.httpLatency.WithLabelValues(method, path, code).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.httpErrors.WithLabelValues(method, path, code).Inc()
}

// RecordCommit counts one unit of work outcome such as "ok", "conflict" or "error".
func (m *Metrics) RecordCommit(aggregate, outcome string) {
	if m == nil {
		return
	}
	m.commits.WithLabelValues(aggregate, outcome).Inc()
}

// RecordEvent counts one committed domain event.
func (m *Metrics) RecordEvent(eventType string) {
	if m == nil {
		return
	}
	m.eventsWritten.WithLabelValues(eventType).Inc()
}

// RecordDelivery counts one outbox delivery attempt: "delivered", "retry" or "dead".
func (m *Metrics) RecordDelivery(outcome string) {
	if m == nil {
		return
	}
	m.outbox.WithLabelValues(outcome).Inc()
}

// ObserveOutboxBatch records how many events a relay run claimed.
func (m *Metrics) ObserveOutboxBatch(n int) {
	if m == nil {
		return
	}
	m.outboxBatch.Observe(float64(n))
}

// SetQueueDepth publishes the size of an asynq queue.
func (m *Metrics) SetQueueDepth(queue string, depth int) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(queue).Set(float64(depth))
}
