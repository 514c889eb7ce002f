package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "soilsense"

// Metrics holds the Prometheus collectors for the analysis service and the
// batch pipeline.
type Metrics struct {
	// Analysis metrics.
	Assessments        *prometheus.CounterVec // labels: severity, source={imagery,defaults}
	IndicatorFallbacks prometheus.Counter
	Forecasts          *prometheus.CounterVec // labels: risk_level
	Recommendations    *prometheus.CounterVec // labels: outcome={generated,fallback,error}
	StoreErrors        *prometheus.CounterVec // labels: operation

	// Imagery backend metrics.
	ImageryRequests    *prometheus.CounterVec   // labels: method={indicators,series}, outcome={success,error,rejected}
	ImageryCache       *prometheus.CounterVec   // labels: method={indicators,series}, result={hit,miss}
	ImageryAPIDuration *prometheus.HistogramVec // labels: method={indicators,series}
	ImageryEnabled     prometheus.Gauge

	// HTTP API metrics.
	HTTPRequests *prometheus.HistogramVec // labels: route, method, status

	// Batch pipeline metrics.
	MessagesConsumed        prometheus.Counter
	MessagesProduced        prometheus.Counter
	TransformErrors         prometheus.Counter
	PipelineRunning         prometheus.Gauge
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics that are not registered anywhere, so
// every test can build its own without "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Assessments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assessments_total",
			Help:      "Degradation assessments computed, by severity and indicator source.",
		}, []string{"severity", "source"}),
		IndicatorFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "indicator_fallbacks_total",
			Help:      "Assessments that used default indicators because imagery was unavailable.",
		}),
		Forecasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecasts_total",
			Help:      "Risk forecasts produced, by risk level.",
		}, []string{"risk_level"}),
		Recommendations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommendations_total",
			Help:      "Recommendation requests by outcome.",
		}, []string{"outcome"}),
		StoreErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Record store failures by operation.",
		}, []string{"operation"}),
		ImageryRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "imagery_requests_total",
			Help:      "Imagery backend requests by method and outcome.",
		}, []string{"method", "outcome"}),
		ImageryCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "imagery_cache_total",
			Help:      "Imagery cache lookups by method and result.",
		}, []string{"method", "result"}),
		ImageryAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "imagery_api_duration_seconds",
			Help:      "Imagery backend request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"method"}),
		ImageryEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "imagery_enabled",
			Help:      "1 when an imagery backend is configured, 0 otherwise.",
		}),
		HTTPRequests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "API request duration by route, method and status code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		MessagesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_consumed_total",
			Help:      "Total analysis requests read from the source topic.",
		}),
		MessagesProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_produced_total",
			Help:      "Total analysis results written to the sink topic.",
		}),
		TransformErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transform_errors_total",
			Help:      "Total analysis requests that could not be processed.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the batch pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of messages per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-transform-load cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.Assessments,
		m.IndicatorFallbacks,
		m.Forecasts,
		m.Recommendations,
		m.StoreErrors,
		m.ImageryRequests,
		m.ImageryCache,
		m.ImageryAPIDuration,
		m.ImageryEnabled,
		m.HTTPRequests,
		m.MessagesConsumed,
		m.MessagesProduced,
		m.TransformErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
	}
}
