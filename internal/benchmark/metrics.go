package benchmark

import (
	"context"

	"github.com/greencoop/weather-etl/internal/observability"
)

// PrometheusRecorder sets the per-station benchmark gauges.
type PrometheusRecorder struct {
	metrics *observability.Metrics
}

func NewPrometheusRecorder(metrics *observability.Metrics) *PrometheusRecorder {
	return &PrometheusRecorder{metrics: metrics}
}

func (p *PrometheusRecorder) Record(_ context.Context, res StationResult) error {
	if res.Error != "" {
		p.metrics.BenchmarkFailures.Inc()
		return nil
	}
	p.metrics.BenchmarkQueryDuration.WithLabelValues(res.Station).Set(res.Duration.Seconds())
	p.metrics.BenchmarkDocuments.WithLabelValues(res.Station).Set(float64(res.DocCount))
	return nil
}
