package observability

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "weather_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for ingestion
// and quality runs.
type Metrics struct {
	// Preprocessing metrics.
	SourcesProcessed *prometheus.CounterVec // labels: outcome={success,error}
	RecordsRead      prometheus.Counter
	RecordsFiltered  prometheus.Counter

	// Loader metrics.
	LoadOutcomes *prometheus.CounterVec // labels: entity={station,observation,schema}, outcome={inserted,updated,skipped,error}
	LoadDuration prometheus.Histogram

	// Quality metrics.
	QualityAlerts        *prometheus.CounterVec   // labels: check
	QualityCheckDuration *prometheus.HistogramVec // labels: check
	DateCoverage         prometheus.Gauge

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec   // labels: method={forward,reverse}, outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec   // labels: method={forward,reverse}, result={hit,miss}
	GeocodeAPIDuration *prometheus.HistogramVec // labels: method={forward,reverse}
	GeocodeEnabled     prometheus.Gauge

	// Query benchmark metrics, one series per station.
	BenchmarkQueryDuration *prometheus.GaugeVec // labels: station
	BenchmarkDocuments     *prometheus.GaugeVec // labels: station
	BenchmarkFailures      prometheus.Counter
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		SourcesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sources_processed_total",
			Help:      "Sources read during preprocessing by outcome.",
		}, []string{"outcome"}),
		RecordsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_read_total",
			Help:      "Hourly records emitted by source adapters.",
		}),
		RecordsFiltered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_filtered_total",
			Help:      "Hourly records dropped for carrying no measurement.",
		}),
		LoadOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "load_outcomes_total",
			Help:      "Loader results by entity and outcome.",
		}, []string{"entity", "outcome"}),
		LoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "load_file_duration_seconds",
			Help:      "Duration of loading one batch file.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		QualityAlerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quality_alerts_total",
			Help:      "Quality alerts raised by check.",
		}, []string{"check"}),
		QualityCheckDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "quality_check_duration_seconds",
			Help:      "Duration of each quality check.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"check"}),
		DateCoverage: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "date_coverage_percent",
			Help:      "Distinct observation timestamps relative to the covered day span.",
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Geocoding API requests by method and outcome.",
		}, []string{"method", "outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by method and result.",
		}, []string{"method", "result"}),
		GeocodeAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      "Mapbox API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method"}),
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "geocode_enabled",
			Help:      "1 when geocoding enrichment is enabled, 0 otherwise.",
		}),
		BenchmarkQueryDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "benchmark_query_duration_seconds",
			Help:      "Duration of the last one-day observation query per station.",
		}, []string{"station"}),
		BenchmarkDocuments: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "benchmark_documents_retrieved",
			Help:      "Observations returned by the last one-day query per station.",
		}, []string{"station"}),
		BenchmarkFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "benchmark_query_failures_total",
			Help:      "Benchmark queries that returned an error.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.SourcesProcessed,
		m.RecordsRead,
		m.RecordsFiltered,
		m.LoadOutcomes,
		m.LoadDuration,
		m.QualityAlerts,
		m.QualityCheckDuration,
		m.DateCoverage,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.GeocodeEnabled,
		m.BenchmarkQueryDuration,
		m.BenchmarkDocuments,
		m.BenchmarkFailures,
	}
}

// Push sends every metric in the default registry to a Pushgateway under the
// given job name. Batch commands call it once before exiting.
func Push(ctx context.Context, url, job string) error {
	if err := push.New(url, job).Gatherer(prometheus.DefaultGatherer).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
