package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Resolve outcome labels.
const (
	OutcomeOK       = "ok"
	OutcomeExpired  = "expired"
	OutcomeNotFound = "not_found"
)

// Metrics aggregates the service's Prometheus instruments behind a
// dedicated registry.
type Metrics struct {
	registry *prometheus.Registry

	urlsCreated prometheus.Counter
	resolves    *prometheus.CounterVec
	clicks      prometheus.Counter
	deliveries  *prometheus.CounterVec
}

// New builds a Metrics with its own registry, pre-seeded with the Go
// runtime and process collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,
		urlsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shortbox",
			Name:      "urls_created_total",
			Help:      "Shortened URLs created.",
		}),
		resolves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shortbox",
			Name:      "resolves_total",
			Help:      "Shortcode resolutions by outcome.",
		}, []string{"outcome"}),
		clicks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shortbox",
			Name:      "clicks_total",
			Help:      "Clicks recorded on live shortcodes.",
		}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shortbox",
			Name:      "log_deliveries_total",
			Help:      "Log entry delivery attempts by outcome.",
		}, []string{"outcome"}),
	}

	registry.MustRegister(m.urlsCreated, m.resolves, m.clicks, m.deliveries)

	return m
}

// URLCreated counts one created record.
func (m *Metrics) URLCreated() {
	m.urlsCreated.Inc()
}

// Resolve counts one resolution attempt with its outcome label.
func (m *Metrics) Resolve(outcome string) {
	m.resolves.WithLabelValues(outcome).Inc()
}

// Click counts one recorded click.
func (m *Metrics) Click() {
	m.clicks.Inc()
}

// Delivery counts one log delivery attempt. It matches the relay's
// OnDelivery hook signature.
func (m *Metrics) Delivery(delivered bool) {
	outcome := "delivered"
	if !delivered {
		outcome = "failed"
	}

	m.deliveries.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
