// Package benchmark times the reference read query of the observations
// collection: every observation of one station over one UTC day.
package benchmark

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/greencoop/weather-etl/internal/domain"
)

// DateLayout is the accepted form of a target day.
const DateLayout = "2006-01-02"

// ErrNoStations is returned when the stations collection is empty.
var ErrNoStations = errors.New("no stations to benchmark")

// Store is the read side the benchmark queries.
type Store interface {
	StationIDs(ctx context.Context) ([]string, error)
	ObservationsBetween(ctx context.Context, stationID, from, to string) ([]domain.Observation, error)
}

// Recorder exports one station measurement. Failed queries are passed too,
// with Error set.
type Recorder interface {
	Record(ctx context.Context, res StationResult) error
}

// StationResult is the outcome of one station query.
type StationResult struct {
	Station    string        `json:"station"`
	DurationMS float64       `json:"duration_ms"`
	DocCount   int           `json:"doc_count"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"-"`
}

// Summary is the report of one benchmark run.
type Summary struct {
	DateTarget     string          `json:"date_target"`
	StationsTested int             `json:"stations_tested"`
	Details        []StationResult `json:"details"`
}

// TargetDay parses a YYYY-MM-DD day. An empty value selects yesterday (UTC).
func TargetDay(s string) (time.Time, error) {
	if s == "" {
		y, m, d := domain.Now().UTC().AddDate(0, 0, -1).Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	day, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse target date %q (want YYYY-MM-DD): %w", s, err)
	}
	return day, nil
}

// DayBounds returns the inclusive first and last second of day as persisted
// dh_utc strings.
func DayBounds(day time.Time) (from, to string) {
	y, m, d := day.UTC().Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	end := start.Add(24*time.Hour - time.Second)
	return start.Format(domain.TimestampLayout), end.Format(domain.TimestampLayout)
}

// Runner queries every station and hands each measurement to the recorders.
type Runner struct {
	store     Store
	recorders []Recorder
	logger    *slog.Logger
}

// NewRunner creates a Runner. Recorder failures are logged, never returned.
func NewRunner(store Store, logger *slog.Logger, recorders ...Recorder) *Runner {
	return &Runner{store: store, recorders: recorders, logger: logger}
}

// Run benchmarks day. A failing station query is reported in its result and
// the run continues; only listing the stations can fail the run.
func (r *Runner) Run(ctx context.Context, day time.Time) (*Summary, error) {
	from, to := DayBounds(day)
	r.logger.Info("benchmark starting", "from", from, "to", to)

	ids, err := r.store.StationIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stations: %w", err)
	}
	summary := &Summary{DateTarget: from, Details: []StationResult{}}
	if len(ids) == 0 {
		r.logger.Warn("no stations found")
		return summary, ErrNoStations
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		res := r.measure(ctx, id, from, to)
		summary.Details = append(summary.Details, res)
		if res.Error != "" {
			r.logger.Error("station benchmark failed", "station", id, "error", res.Error)
		} else {
			r.logger.Info("station benchmarked", "station", id, "duration_ms", res.DurationMS, "docs", res.DocCount)
		}
		r.record(ctx, res)
	}
	summary.StationsTested = len(summary.Details)
	r.logger.Info("benchmark complete", "stations", summary.StationsTested)
	return summary, nil
}

func (r *Runner) measure(ctx context.Context, id, from, to string) StationResult {
	start := time.Now()
	docs, err := r.store.ObservationsBetween(ctx, id, from, to)
	elapsed := time.Since(start)
	if err != nil {
		return StationResult{Station: id, Error: err.Error()}
	}
	return StationResult{
		Station:    id,
		DurationMS: math.Round(float64(elapsed.Microseconds())/10) / 100,
		DocCount:   len(docs),
		Duration:   elapsed,
	}
}

func (r *Runner) record(ctx context.Context, res StationResult) {
	for _, rec := range r.recorders {
		if err := rec.Record(ctx, res); err != nil {
			r.logger.Error("benchmark metric export failed", "station", res.Station, "error", err)
		}
	}
}
