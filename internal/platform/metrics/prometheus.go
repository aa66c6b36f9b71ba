package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager holds the service's Prometheus metrics on a private registry.
type Manager struct {
	Registry *prometheus.Registry

	OrdersCreatedTotal    prometheus.Counter
	OrderTransitionsTotal *prometheus.CounterVec
	IdemReplaysTotal      prometheus.Counter
	ReviewsCreatedTotal   prometheus.Counter
	APIErrorsTotal        *prometheus.CounterVec
	RequestLatency        *prometheus.HistogramVec
}

func NewManager(namespace string) *Manager {
	registry := prometheus.NewRegistry()

	m := &Manager{
		Registry: registry,
		OrdersCreatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Total number of orders created.",
		}),
		OrderTransitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_transitions_total",
			Help:      "Total number of successful order status transitions.",
		}, []string{"to_status"}),
		IdemReplaysTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "idempotent_replays_total",
			Help:      "Purchase requests answered from the idempotency ledger.",
		}),
		ReviewsCreatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reviews_created_total",
			Help:      "Total number of reviews created.",
		}),
		APIErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_errors_total",
			Help:      "Total number of API errors by route and error kind.",
		}, []string{"route", "kind"}),
		RequestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_latency_seconds",
			Help:      "Latency of API requests by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	registry.MustRegister(
		m.OrdersCreatedTotal,
		m.OrderTransitionsTotal,
		m.IdemReplaysTotal,
		m.ReviewsCreatedTotal,
		m.APIErrorsTotal,
		m.RequestLatency,
	)
	return m
}

// Handler serves the registry for Prometheus scraping.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
