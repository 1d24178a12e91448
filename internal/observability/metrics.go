package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics owns the service's Prometheus registry and counters.
type Metrics struct {
	registry *prometheus.Registry

	requestCount    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errorCount      *prometheus.CounterVec
	creditsSpent    prometheus.Counter
	vouchers        *prometheus.CounterVec
	generations     *prometheus.CounterVec
	accounts        *prometheus.CounterVec
}

// NewMetrics registers all collectors on a private registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requestCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_http_requests_total",
			Help: "HTTP requests by path, method and status.",
		}, []string{"path", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ledger_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method"}),
		errorCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_http_errors_total",
			Help: "Errors returned to clients by error code.",
		}, []string{"path", "method", "code"}),
		creditsSpent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_credits_spent_total",
			Help: "Credits consumed by generations.",
		}),
		vouchers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_vouchers_total",
			Help: "Activation key operations by action.",
		}, []string{"action"}),
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_generations_total",
			Help: "Generation attempts by outcome.",
		}, []string{"status"}),
		accounts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_account_events_total",
			Help: "Account lifecycle events.",
		}, []string{"event"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requestCount,
		m.requestDuration,
		m.errorCount,
		m.creditsSpent,
		m.vouchers,
		m.generations,
		m.accounts,
	)
	return m
}

// Registry exposes the registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestCount.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errorCount.WithLabelValues(path, method, code).Inc()
}

// RecordCreditSpent counts one metered generation.
func (m *Metrics) RecordCreditSpent() {
	if m == nil {
		return
	}
	m.creditsSpent.Inc()
}

// RecordVoucher counts an activation key action (issued, redeemed, revoked).
func (m *Metrics) RecordVoucher(action string) {
	if m == nil {
		return
	}
	m.vouchers.WithLabelValues(action).Inc()
}

// RecordGeneration counts a generation attempt by outcome.
func (m *Metrics) RecordGeneration(status string) {
	if m == nil {
		return
	}
	m.generations.WithLabelValues(status).Inc()
}

// RecordAccountEvent counts an account lifecycle event.
func (m *Metrics) RecordAccountEvent(event string) {
	if m == nil {
		return
	}
	m.accounts.WithLabelValues(event).Inc()
}
