// Package metrics holds the Prometheus collectors exported by the HTTP API.
// Each Metrics owns its registry so servers and tests never share state.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "option_amm"

// Metrics holds all collectors for the API.
type Metrics struct {
	Registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	QuotesTotal  *prometheus.CounterVec
	QuoteSpread  prometheus.Histogram
	QuoteImpact  prometheus.Histogram
	ProviderMiss prometheus.Counter
}

// New creates a Metrics with its collectors registered, plus the Go runtime
// and process collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),

		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by route and status code",
			},
			[]string{"route", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency by route",
				Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
			},
			[]string{"route"},
		),

		QuotesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "quotes_total",
				Help:      "AMM quotes by side and result (ok or unavailable)",
			},
			[]string{"side", "result"},
		),
		QuoteSpread: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "quote_spread_percent",
			Help:      "Dynamic spread of served quotes in percent",
			Buckets:   prometheus.LinearBuckets(1, 1, 15),
		}),
		QuoteImpact: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "quote_price_impact_percent",
			Help:      "Price impact of served quotes in percent",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		ProviderMiss: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_provider_failures_total",
			Help:      "Underlying price lookups no provider could answer",
		}),
	}

	m.Registry.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.QuotesTotal,
		m.QuoteSpread,
		m.QuoteImpact,
		m.ProviderMiss,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveRequest records one served request.
func (m *Metrics) ObserveRequest(route string, status int, d time.Duration) {
	m.RequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(route).Observe(d.Seconds())
}

// ObserveQuote records a priced quote. Spread and impact are percentages.
func (m *Metrics) ObserveQuote(side string, spread, impact float64) {
	m.QuotesTotal.WithLabelValues(side, "ok").Inc()
	m.QuoteSpread.Observe(spread)
	m.QuoteImpact.Observe(impact)
}

// ObserveUnavailable records a quote request that could not be priced.
func (m *Metrics) ObserveUnavailable(side string) {
	m.QuotesTotal.WithLabelValues(side, "unavailable").Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
