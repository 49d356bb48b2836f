package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "team_weather"

// Metrics holds the Prometheus counters, histograms, and gauges for the
// dashboard pipeline and its adapters.
type Metrics struct {
	FilesLoaded        prometheus.Counter
	FilesFailed        prometheus.Counter
	RecordsNormalized  prometheus.Counter
	FieldParseFailures *prometheus.CounterVec // labels: field={temperature,humidity,wind_speed}
	DatasetRecords     prometheus.Gauge
	PipelineRunning    prometheus.Gauge

	// Run metrics.
	Runs        *prometheus.CounterVec // labels: outcome={success,partial,error}
	RunDuration prometheus.Histogram

	// Sink metrics.
	SinkErrors      *prometheus.CounterVec // labels: sink
	RecordsExported *prometheus.CounterVec // labels: sink

	// OpenWeather metrics.
	OpenWeatherRequests *prometheus.CounterVec // labels: outcome={success,error}
	OpenWeatherCache    *prometheus.CounterVec // labels: result={hit,miss}
	OpenWeatherDuration prometheus.Histogram
}

// NewMetrics creates and registers all metrics with the default Prometheus
// registry.
func NewMetrics() *Metrics {
	m := newMetrics(true)
	prometheus.MustRegister(
		m.FilesLoaded,
		m.FilesFailed,
		m.RecordsNormalized,
		m.FieldParseFailures,
		m.DatasetRecords,
		m.PipelineRunning,
		m.Runs,
		m.RunDuration,
		m.SinkErrors,
		m.RecordsExported,
		m.OpenWeatherRequests,
		m.OpenWeatherCache,
		m.OpenWeatherDuration,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid "already
// registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics(false)
}

func newMetrics(withHelp bool) *Metrics {
	help := func(s string) string {
		if withHelp {
			return s
		}
		return ""
	}

	return &Metrics{
		FilesLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_loaded_total",
			Help:      help("CSV files read from the data directory."),
		}),
		FilesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_failed_total",
			Help:      help("CSV files skipped because they could not be read or decoded."),
		}),
		RecordsNormalized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_normalized_total",
			Help:      help("Raw rows mapped onto the canonical schema."),
		}),
		FieldParseFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "field_parse_failures_total",
			Help:      help("Recognized numeric columns dropped because they did not parse."),
		}, []string{"field"}),
		DatasetRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_records",
			Help:      help("Records in the most recent team dataset."),
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      help("1 while a refresh run is in progress."),
		}),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      help("Refresh runs by outcome."),
		}, []string{"outcome"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      help("Duration of a complete extract-normalize-aggregate-load run."),
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		SinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_errors_total",
			Help:      help("Sink load failures after retries."),
		}, []string{"sink"}),
		RecordsExported: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_exported_total",
			Help:      help("Canonical records delivered per sink."),
		}, []string{"sink"}),
		OpenWeatherRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "openweather_requests_total",
			Help:      help("OpenWeather API requests by outcome."),
		}, []string{"outcome"}),
		OpenWeatherCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "openweather_cache_total",
			Help:      help("OpenWeather cache lookups by result."),
		}, []string{"result"}),
		OpenWeatherDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "openweather_api_duration_seconds",
			Help:      help("OpenWeather API request duration in seconds."),
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}
}
