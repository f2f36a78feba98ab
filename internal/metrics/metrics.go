package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"qrmenu/internal/model"
)

// Metrics records HTTP and order metrics. A nil *Metrics records nothing.
type Metrics struct {
	gatherer        prometheus.Gatherer
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	ordersCreated   *prometheus.CounterVec
	orderTotal      *prometheus.HistogramVec
	idempotentHits  *prometheus.CounterVec
}

// New registers the API metrics on a fresh registry together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg, reg)
}

// NewWithRegistry registers the API metrics on reg.
func NewWithRegistry(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	m := &Metrics{
		gatherer: gatherer,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		ordersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Orders recorded by channel.",
		}, []string{"kind"}),
		orderTotal: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "order_total_amount",
			Help:    "Order totals after discounts.",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"kind"}),
		idempotentHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "idempotency_outcomes_total",
			Help: "Idempotency-Key handling outcomes.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.requests, m.requestDuration, m.ordersCreated, m.orderTotal, m.idempotentHits)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// OrderCreated records a stored order.
func (m *Metrics) OrderCreated(kind model.OrderKind, total decimal.Decimal) {
	if m == nil {
		return
	}
	m.ordersCreated.WithLabelValues(string(kind)).Inc()
	m.orderTotal.WithLabelValues(string(kind)).Observe(total.InexactFloat64())
}

// IdempotencyOutcome records how a keyed request was handled: stored,
// replayed, conflict or mismatch.
func (m *Metrics) IdempotencyOutcome(outcome string) {
	if m == nil {
		return
	}
	m.idempotentHits.WithLabelValues(outcome).Inc()
}
