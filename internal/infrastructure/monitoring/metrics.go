package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// MetricsCollector handles Prometheus metrics collection for the engine's
// ingestion and alerting paths.
type MetricsCollector struct {
	logger   *zap.Logger
	registry *prometheus.Registry

	// Ingestion metrics
	eventsIngestedTotal  *prometheus.CounterVec
	eventsSampledOut     prometheus.Counter
	samplesRecordedTotal prometheus.Counter
	conversionsTotal     *prometheus.CounterVec
	metricsRecordedTotal *prometheus.CounterVec
	ingestErrorsTotal    *prometheus.CounterVec

	// Engine state metrics
	activeSessions   prometheus.Gauge
	alertsFiredTotal *prometheus.CounterVec
}

// NewMetricsCollector creates a metrics collector on its own registry, so
// each engine instance (and each test) registers cleanly.
func NewMetricsCollector(logger *zap.Logger) *MetricsCollector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &MetricsCollector{
		logger:   logger,
		registry: registry,

		eventsIngestedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sitepulse",
				Name:      "events_ingested_total",
				Help:      "Total number of behavioral events accepted",
			},
			[]string{"type"},
		),
		eventsSampledOut: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "sitepulse",
				Name:      "events_sampled_out_total",
				Help:      "Total number of behavioral events dropped by the sampling gate",
			},
		),
		samplesRecordedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "sitepulse",
				Name:      "performance_samples_total",
				Help:      "Total number of Core Web Vitals samples recorded",
			},
		),
		conversionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sitepulse",
				Name:      "conversions_total",
				Help:      "Total number of conversions recorded",
			},
			[]string{"stage"},
		),
		metricsRecordedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sitepulse",
				Name:      "business_metrics_total",
				Help:      "Total number of business metric observations recorded",
			},
			[]string{"kind"},
		),
		ingestErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sitepulse",
				Name:      "ingest_errors_total",
				Help:      "Total number of malformed payloads rejected at ingestion",
			},
			[]string{"operation"},
		),
		activeSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "sitepulse",
				Name:      "active_sessions",
				Help:      "Sessions with activity in the trailing five minutes",
			},
		),
		alertsFiredTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sitepulse",
				Name:      "alerts_fired_total",
				Help:      "Total number of performance alerts fired",
			},
			[]string{"severity"},
		),
	}
}

// EventIngested records an accepted behavioral event
func (m *MetricsCollector) EventIngested(eventType string) {
	m.eventsIngestedTotal.WithLabelValues(eventType).Inc()
}

// EventSampledOut records an event dropped by the sampling gate
func (m *MetricsCollector) EventSampledOut() {
	m.eventsSampledOut.Inc()
}

// SampleRecorded records an accepted performance sample
func (m *MetricsCollector) SampleRecorded() {
	m.samplesRecordedTotal.Inc()
}

// ConversionRecorded records an accepted conversion
func (m *MetricsCollector) ConversionRecorded(stage string) {
	m.conversionsTotal.WithLabelValues(stage).Inc()
}

// MetricRecorded records an accepted business metric observation
func (m *MetricsCollector) MetricRecorded(kind string) {
	m.metricsRecordedTotal.WithLabelValues(kind).Inc()
}

// IngestError records a malformed payload rejection
func (m *MetricsCollector) IngestError(operation string) {
	m.ingestErrorsTotal.WithLabelValues(operation).Inc()
}

// SetActiveSessions updates the active session gauge
func (m *MetricsCollector) SetActiveSessions(count int) {
	m.activeSessions.Set(float64(count))
}

// AlertFired records a performance alert
func (m *MetricsCollector) AlertFired(severity string) {
	m.alertsFiredTotal.WithLabelValues(severity).Inc()
}

// Handler returns the Prometheus scrape handler for this collector's
// registry
func (m *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
