package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusMetrics implements the Metrics interface using Prometheus.
type PrometheusMetrics struct {
	registry *prometheus.Registry

	// Transaction metrics
	txExecuted *prometheus.CounterVec
	txLatency  *prometheus.HistogramVec
	txRejected *prometheus.CounterVec

	// Ledger metrics
	totalSupply prometheus.Gauge
	holders     prometheus.Gauge

	// Registry metrics
	registrySize  *prometheus.GaugeVec
	verifications *prometheus.CounterVec

	// State store metrics
	stateVersion  prometheus.Gauge
	commitLatency prometheus.Histogram

	// Indexer metrics
	eventsIndexed prometheus.Counter
}

// NewPrometheusMetrics creates a new PrometheusMetrics instance.
func NewPrometheusMetrics(namespace string) *PrometheusMetrics {
	registry := prometheus.NewRegistry()

	m := &PrometheusMetrics{
		registry: registry,

		txExecuted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tx_executed_total",
				Help:      "Total number of executed transactions by operation and result",
			},
			[]string{"op", "result"},
		),
		txLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "tx_latency_seconds",
				Help:      "Transaction execution latency by operation",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		txRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tx_rejected_total",
				Help:      "Total number of rejected transactions by reason",
			},
			[]string{"reason"},
		),
		totalSupply: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "total_supply",
				Help:      "Current total token supply",
			},
		),
		holders: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "holders",
				Help:      "Number of addresses with a non-zero balance",
			},
		),
		registrySize: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "registry_size",
				Help:      "Size of each counted-set registry",
			},
			[]string{"registry"},
		),
		verifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "identity_verifications_total",
				Help:      "Total number of identity verifications by outcome",
			},
			[]string{"outcome"},
		),
		stateVersion: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "state_version",
				Help:      "Last committed state version",
			},
		),
		commitLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "commit_latency_seconds",
				Help:      "State commit latency",
				Buckets:   prometheus.DefBuckets,
			},
		),
		eventsIndexed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_indexed_total",
				Help:      "Total number of indexed events",
			},
		),
	}

	registry.MustRegister(
		m.txExecuted,
		m.txLatency,
		m.txRejected,
		m.totalSupply,
		m.holders,
		m.registrySize,
		m.verifications,
		m.stateVersion,
		m.commitLatency,
		m.eventsIndexed,
	)

	return m
}

// Transaction metrics

func (m *PrometheusMetrics) IncTxExecuted(op string, result string) {
	m.txExecuted.WithLabelValues(op, result).Inc()
}

func (m *PrometheusMetrics) ObserveTxLatency(op string, latency time.Duration) {
	m.txLatency.WithLabelValues(op).Observe(latency.Seconds())
}

func (m *PrometheusMetrics) IncTxRejected(reason string) {
	m.txRejected.WithLabelValues(reason).Inc()
}

// Ledger metrics

func (m *PrometheusMetrics) SetTotalSupply(supply uint64) {
	m.totalSupply.Set(float64(supply))
}

func (m *PrometheusMetrics) SetHolders(count int) {
	m.holders.Set(float64(count))
}

// Registry metrics

func (m *PrometheusMetrics) SetRegistrySize(registry string, size int) {
	m.registrySize.WithLabelValues(registry).Set(float64(size))
}

func (m *PrometheusMetrics) IncVerifications(outcome string) {
	m.verifications.WithLabelValues(outcome).Inc()
}

// State store metrics

func (m *PrometheusMetrics) SetStateVersion(version int64) {
	m.stateVersion.Set(float64(version))
}

func (m *PrometheusMetrics) ObserveCommitLatency(latency time.Duration) {
	m.commitLatency.Observe(latency.Seconds())
}

// Indexer metrics

func (m *PrometheusMetrics) IncEventsIndexed(count int) {
	m.eventsIndexed.Add(float64(count))
}

// Handler returns an HTTP handler for serving metrics.
func (m *PrometheusMetrics) Handler() any {
	return m.HTTPHandler()
}

// HTTPHandler returns a typed HTTP handler for serving metrics.
func (m *PrometheusMetrics) HTTPHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		Registry: m.registry,
	})
}
