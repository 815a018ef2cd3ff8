// Package quality runs read-only checks over the loaded observations and
// raises alerts when thresholds are exceeded.
package quality

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/greencoop/weather-etl/internal/config"
	"github.com/greencoop/weather-etl/internal/domain"
	"github.com/greencoop/weather-etl/internal/observability"
)

// Store is the read side of the document store.
type Store interface {
	CountObservations(ctx context.Context) (int64, error)
	CountStations(ctx context.Context) (int64, error)
	CountSchemaFields(ctx context.Context) (int64, error)
	CountNull(ctx context.Context, field string) (int64, error)
	CountDuplicateKeys(ctx context.Context) (int64, error)
	FieldStats(ctx context.Context, field string) (domain.FieldStats, error)
	DistinctCount(ctx context.Context, field string) (int64, error)
	TypeCounts(ctx context.Context, field string) (map[string]int64, error)
	TimestampSpan(ctx context.Context) (domain.TimestampSpan, error)
}

// minCoverage is the coverage percentage at or above which dates pass.
const minCoverage = 95.0

// Engine runs the checks against a Store.
type Engine struct {
	store      Store
	thresholds config.QualityThresholds
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewEngine creates an Engine.
func NewEngine(store Store, thresholds config.QualityThresholds, logger *slog.Logger, metrics *observability.Metrics) *Engine {
	return &Engine{store: store, thresholds: thresholds, logger: logger, metrics: metrics}
}

// run holds the state of one Run call.
type run struct {
	*Engine
	report *Report
	total  int64
}

// Run executes all checks in order. Collection counting failures are
// returned; a failing check is recorded in the report and the rest still run.
func (e *Engine) Run(ctx context.Context) (*Report, error) {
	r := &run{Engine: e, report: &Report{Timestamp: domain.NowTimestamp(), Alerts: []Alert{}}}

	var err error
	c := &r.report.Collections
	if c.ObservationsTotal, err = e.store.CountObservations(ctx); err != nil {
		return nil, fmt.Errorf("count observations: %w", err)
	}
	if c.StationsTotal, err = e.store.CountStations(ctx); err != nil {
		return nil, fmt.Errorf("count stations: %w", err)
	}
	if c.SchemaMetadataTotal, err = e.store.CountSchemaFields(ctx); err != nil {
		return nil, fmt.Errorf("count schema fields: %w", err)
	}
	r.total = c.ObservationsTotal

	e.logger.Info("quality run started",
		"observations", c.ObservationsTotal,
		"stations", c.StationsTotal,
		"schema_fields", c.SchemaMetadataTotal,
	)
	if r.total == 0 {
		e.logger.Warn("no observations in collection")
		return r.report, nil
	}

	checks := []struct {
		name string
		fn   func(context.Context) error
	}{
		{CheckMissingFields, r.missingFields},
		{CheckDuplicates, r.duplicates},
		{CheckDataRanges, r.dataRanges},
		{CheckNullPercentages, r.nullPercentages},
		{CheckUniqueValues, r.uniqueValues},
		{CheckTypeConsistency, r.typeConsistency},
		{CheckDateCoverage, r.dateCoverage},
	}
	for _, check := range checks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		if err := check.fn(ctx); err != nil {
			e.logger.Warn("quality check failed", "check", check.name, "error", err)
			if r.report.Checks.Errors == nil {
				r.report.Checks.Errors = make(map[string]string)
			}
			r.report.Checks.Errors[check.name] = err.Error()
		}
		e.metrics.QualityCheckDuration.WithLabelValues(check.name).Observe(time.Since(start).Seconds())
	}

	e.logger.Info("quality run finished", "alerts", len(r.report.Alerts))
	return r.report, nil
}

func (r *run) alert(check, format string, args ...any) {
	r.report.Alerts = append(r.report.Alerts, Alert{Check: check, Message: fmt.Sprintf(format, args...)})
	r.metrics.QualityAlerts.WithLabelValues(check).Inc()
}

// ratio is unrounded; thresholds compare against it, reports carry percent.
func (r *run) ratio(n int64) float64 {
	return float64(n) / float64(r.total) * 100
}

func (r *run) percent(n int64) float64 {
	return round2(r.ratio(n))
}

func (r *run) missingFields(ctx context.Context) error {
	out := make(map[string]CountPercent, len(requiredFields))
	for _, f := range requiredFields {
		n, err := r.store.CountNull(ctx, f)
		if err != nil {
			return fmt.Errorf("count missing %s: %w", f, err)
		}
		out[f] = CountPercent{Count: n, Percentage: r.percent(n)}
	}
	r.report.Checks.MissingRequiredFields = out

	station, ts := out[domain.FieldStationID].Count, out[domain.FieldTimestamp].Count
	if station > 0 || ts > 0 {
		r.alert(CheckMissingFields, "Missing required fields: %d station, %d timestamp", station, ts)
	}
	return nil
}

func (r *run) duplicates(ctx context.Context) error {
	n, err := r.store.CountDuplicateKeys(ctx)
	if err != nil {
		return fmt.Errorf("count duplicate keys: %w", err)
	}
	res := CountPercent{Count: n, Percentage: r.percent(n)}
	r.report.Checks.Duplicates = &res
	if r.ratio(n) > r.thresholds.MaxDuplicatePercentage {
		r.alert(CheckDuplicates, "High duplicate rate: %s%%", formatNumber(res.Percentage))
	}
	return nil
}

func (r *run) dataRanges(ctx context.Context) error {
	out := make(map[string]Range, len(rangeFields))
	for _, f := range rangeFields {
		s, err := r.store.FieldStats(ctx, f)
		if err != nil {
			return fmt.Errorf("aggregate %s: %w", f, err)
		}
		if s.Count == 0 {
			continue
		}
		out[f] = Range{Min: round2(s.Min), Max: round2(s.Max), Avg: round2(s.Avg), Count: s.Count}

		t := r.thresholds
		switch f {
		case domain.FieldTemperature:
			if s.Min < t.TemperatureMin {
				r.alert(CheckDataRanges, "Temperature below %s°C: %s°C", formatNumber(t.TemperatureMin), formatNumber(s.Min))
			}
			if s.Max > t.TemperatureMax {
				r.alert(CheckDataRanges, "Temperature above %s°C: %s°C", formatNumber(t.TemperatureMax), formatNumber(s.Max))
			}
		case domain.FieldPressure:
			if s.Min < t.PressureMin {
				r.alert(CheckDataRanges, "Pressure below %s hPa: %s hPa", formatNumber(t.PressureMin), formatNumber(s.Min))
			}
			if s.Max > t.PressureMax {
				r.alert(CheckDataRanges, "Pressure above %s hPa: %s hPa", formatNumber(t.PressureMax), formatNumber(s.Max))
			}
		}
	}
	r.report.Checks.DataRanges = out
	return nil
}

func (r *run) nullPercentages(ctx context.Context) error {
	out := make(map[string]CountPercent, len(nullRateFields))
	for _, f := range nullRateFields {
		n, err := r.store.CountNull(ctx, f)
		if err != nil {
			return fmt.Errorf("count null %s: %w", f, err)
		}
		cp := CountPercent{Count: n, Percentage: r.percent(n)}
		out[f] = cp
		if r.ratio(n) > r.thresholds.MaxNullPercentage {
			r.alert(CheckNullPercentages, "High null rate for %s: %s%%", f, formatNumber(cp.Percentage))
		}
	}
	r.report.Checks.NullPercentages = out
	return nil
}

func (r *run) uniqueValues(ctx context.Context) error {
	stations, err := r.store.DistinctCount(ctx, domain.FieldStationID)
	if err != nil {
		return fmt.Errorf("distinct stations: %w", err)
	}
	sources, err := r.store.DistinctCount(ctx, domain.FieldSource)
	if err != nil {
		return fmt.Errorf("distinct sources: %w", err)
	}
	r.report.Checks.UniqueValues = &UniqueValues{
		UniqueStations: stations,
		UniqueSources:  sources,
		UniqueCities:   r.report.Collections.StationsTotal,
		SchemaFields:   r.report.Collections.SchemaMetadataTotal,
	}
	return nil
}

func (r *run) typeConsistency(ctx context.Context) error {
	temp, err := r.store.TypeCounts(ctx, domain.FieldTemperature)
	if err != nil {
		return fmt.Errorf("temperature types: %w", err)
	}
	station, err := r.store.TypeCounts(ctx, domain.FieldStationID)
	if err != nil {
		return fmt.Errorf("station types: %w", err)
	}
	r.report.Checks.TypeConsistency = &TypeConsistency{TemperatureTypes: temp, StationTypes: station}

	if _, ok := station[domain.TypeString]; len(station) > 1 || (len(station) == 1 && !ok) {
		r.alert(CheckTypeConsistency, "Non-string id_station values detected")
	}
	return nil
}

// dateCoverage never fails the run: every outcome is expressed as a status.
func (r *run) dateCoverage(ctx context.Context) error {
	res := r.coverage(ctx)
	r.report.Checks.DateCoverage = &res
	r.metrics.DateCoverage.Set(res.Details.CoveragePercentage)
	return nil
}

func (r *run) coverage(ctx context.Context) DateCoverage {
	span, err := r.store.TimestampSpan(ctx)
	if err != nil {
		return DateCoverage{Status: StatusError, Reason: "Aggregation failed: " + err.Error()}
	}
	if span.Min == "" {
		return DateCoverage{Status: StatusWarn, Reason: "No date data or aggregation failed"}
	}
	minT, errMin := parseTimestamp(span.Min)
	maxT, errMax := parseTimestamp(span.Max)
	if errMin != nil || errMax != nil {
		e := errMin
		if e == nil {
			e = errMax
		}
		return DateCoverage{
			Status:  StatusError,
			Reason:  "Date parsing failed: " + e.Error(),
			Details: DateCoverageDetails{MinDate: span.Min, MaxDate: span.Max},
		}
	}

	totalDays := int64(math.Floor(maxT.Sub(minT).Hours()/24)) + 1
	ratio := 0.0
	if totalDays > 0 {
		ratio = float64(span.Distinct) / float64(totalDays) * 100
	}
	status := StatusWarn
	if ratio >= minCoverage {
		status = StatusPass
	}
	return DateCoverage{
		Status: status,
		Reason: fmt.Sprintf("Date coverage: %.1f%%", ratio),
		Details: DateCoverageDetails{
			MinDate:            span.Min,
			MaxDate:            span.Max,
			TotalDays:          totalDays,
			UniqueDates:        span.Distinct,
			CoveragePercentage: round2(ratio),
		},
	}
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range []string{domain.TimestampLayout, time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// formatNumber renders a float in its shortest form, keeping one decimal
// for whole numbers (20 → "20.0").
func formatNumber(x float64) string {
	s := fmt.Sprintf("%g", x)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
