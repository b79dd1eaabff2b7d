// Package metrics exposes Prometheus collectors for quoting and the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics holds all rating metrics
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Rating metrics
	QuotesTotal       *prometheus.CounterVec
	QuoteFinalPrice   *prometheus.HistogramVec
	ModifiersApplied  *prometheus.CounterVec
	RateCardReloads   *prometheus.CounterVec
	ActiveRules       prometheus.Gauge
	QuoteCalcDuration prometheus.Histogram
}

// Config holds metrics configuration
type Config struct {
	Namespace string
}

// DefaultConfig returns default metrics configuration
func DefaultConfig() *Config {
	return &Config{Namespace: "rating"}
}

// New creates a new Metrics instance backed by its own registry
func New(config *Config) *Metrics {
	if config == nil {
		config = DefaultConfig()
	}
	ns := config.Namespace

	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	m := &Metrics{registry: registry}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ns,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	m.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	m.HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "http_requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		},
	)

	m.QuotesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ns,
			Name:      "quotes_total",
			Help:      "Total number of price quotes by transport mode and outcome",
		},
		[]string{"transport_mode", "outcome"},
	)

	m.QuoteFinalPrice = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "quote_final_price",
			Help:      "Final quoted price in the configured currency",
			Buckets:   prometheus.ExponentialBuckets(10, 2.5, 10),
		},
		[]string{"transport_mode"},
	)

	m.ModifiersApplied = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ns,
			Name:      "modifiers_applied_total",
			Help:      "Total number of times each modifier adjusted a quote",
		},
		[]string{"modifier"},
	)

	m.RateCardReloads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ns,
			Name:      "ratecard_reloads_total",
			Help:      "Total number of rate card reloads by outcome",
		},
		[]string{"outcome"},
	)

	m.ActiveRules = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "active_rules",
			Help:      "Number of pricing rules flagged active",
		},
	)

	m.QuoteCalcDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "quote_calculation_duration_seconds",
			Help:      "Time spent in the pricing engine per quote",
			Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01},
		},
	)

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.QuotesTotal,
		m.QuoteFinalPrice,
		m.ModifiersApplied,
		m.RateCardReloads,
		m.ActiveRules,
		m.QuoteCalcDuration,
	)

	return m
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler serving the registry in the exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records one completed HTTP request
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// IncrementHTTPRequestsInFlight increments the in-flight gauge
func (m *Metrics) IncrementHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Inc()
}

// DecrementHTTPRequestsInFlight decrements the in-flight gauge
func (m *Metrics) DecrementHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Dec()
}

// RecordQuote records a successful quote and the modifiers that shaped it
func (m *Metrics) RecordQuote(transportMode string, finalPrice float64, modifiers []string, duration time.Duration) {
	m.QuotesTotal.WithLabelValues(transportMode, OutcomeSuccess).Inc()
	m.QuoteFinalPrice.WithLabelValues(transportMode).Observe(finalPrice)
	m.QuoteCalcDuration.Observe(duration.Seconds())
	for _, name := range modifiers {
		m.ModifiersApplied.WithLabelValues(name).Inc()
	}
}

// RecordQuoteFailure records a quote that ended in an error
func (m *Metrics) RecordQuoteFailure(transportMode string) {
	m.QuotesTotal.WithLabelValues(transportMode, OutcomeFailure).Inc()
}

// RecordRateCardReload records a rate card reload attempt
func (m *Metrics) RecordRateCardReload(success bool) {
	outcome := OutcomeSuccess
	if !success {
		outcome = OutcomeFailure
	}
	m.RateCardReloads.WithLabelValues(outcome).Inc()
}

// SetActiveRules sets the active rule gauge
func (m *Metrics) SetActiveRules(n int) {
	m.ActiveRules.Set(float64(n))
}
