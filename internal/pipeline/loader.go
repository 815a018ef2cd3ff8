package pipeline

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/greencoop/weather-etl/internal/config"
	"github.com/greencoop/weather-etl/internal/domain"
	"github.com/greencoop/weather-etl/internal/observability"
)

// Store is the write side of the document store.
type Store interface {
	UpsertStation(ctx context.Context, st domain.Station) (inserted bool, err error)
	UpsertObservation(ctx context.Context, obs domain.Observation) (inserted bool, err error)
	UpsertSchemaField(ctx context.Context, f domain.SchemaField) (inserted bool, err error)
}

// Outcome classifies a single record write.
type Outcome string

const (
	OutcomeInserted Outcome = "inserted"
	OutcomeUpdated  Outcome = "updated"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeError    Outcome = "error"
)

// LoadStats accumulates record outcomes for one file or a whole run.
type LoadStats struct {
	StationsInserted     int `json:"stations_inserted"`
	StationsUpdated      int `json:"stations_updated"`
	ObservationsInserted int `json:"observations_inserted"`
	ObservationsUpdated  int `json:"observations_updated"`
	SchemaFieldsLoaded   int `json:"schema_records_inserted"`
	Skipped              int `json:"skipped"`
	Errors               int `json:"errors"`
	Files                int `json:"files"`
}

// Add sums other into s.
func (s *LoadStats) Add(other LoadStats) {
	s.StationsInserted += other.StationsInserted
	s.StationsUpdated += other.StationsUpdated
	s.ObservationsInserted += other.ObservationsInserted
	s.ObservationsUpdated += other.ObservationsUpdated
	s.SchemaFieldsLoaded += other.SchemaFieldsLoaded
	s.Skipped += other.Skipped
	s.Errors += other.Errors
	s.Files += other.Files
}

func (s *LoadStats) countStation(o Outcome) {
	switch o {
	case OutcomeInserted:
		s.StationsInserted++
	case OutcomeUpdated:
		s.StationsUpdated++
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeError:
		s.Errors++
	}
}

func (s *LoadStats) countObservation(o Outcome) {
	switch o {
	case OutcomeInserted:
		s.ObservationsInserted++
	case OutcomeUpdated:
		s.ObservationsUpdated++
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeError:
		s.Errors++
	}
}

// Loader validates records and upserts them into a Store.
type Loader struct {
	store   Store
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewLoader creates a Loader.
func NewLoader(store Store, logger *slog.Logger, metrics *observability.Metrics) *Loader {
	return &Loader{store: store, logger: logger, metrics: metrics}
}

// Run is one load run. Stations written during the run are not written again.
type Run struct {
	loader *Loader
	seen   map[string]struct{}
}

// NewRun starts a load run with an empty seen-stations set.
func (l *Loader) NewRun() *Run {
	return &Run{loader: l, seen: make(map[string]struct{})}
}

// bulkLine is a batch record line: stations plus hourly lists per station.
type bulkLine struct {
	Stations []map[string]any          `json:"stations"`
	Hourly   map[string]json.RawMessage `json:"hourly"`
}

// Load reads JSONL from r and upserts every record. A malformed line counts
// as one error; the remaining lines are still loaded. Only read failures and
// context cancellation are returned as errors.
func (r *Run) Load(ctx context.Context, in io.Reader, sourceName string) (LoadStats, error) {
	start := time.Now()
	var stats LoadStats
	br := bufio.NewReader(in)
	for lineNum := 1; ; lineNum++ {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		line, err := br.ReadBytes('\n')
		if len(bytes.TrimSpace(line)) > 0 {
			r.loadLine(ctx, line, lineNum, sourceName, &stats)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("read line %d: %w", lineNum, err)
		}
	}
	stats.Files = 1
	r.loader.metrics.LoadDuration.Observe(time.Since(start).Seconds())
	return stats, nil
}

func (r *Run) loadLine(ctx context.Context, line []byte, lineNum int, sourceName string, stats *LoadStats) {
	// encoding/json would replace invalid bytes with U+FFFD and corrupt the key.
	if !utf8.Valid(line) {
		r.loader.logger.Debug("line is not valid UTF-8", "line", lineNum)
		stats.Errors++
		r.loader.record("line", OutcomeError)
		return
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(line, &keys); err != nil {
		r.loader.logger.Debug("invalid JSON line", "line", lineNum, "error", err)
		stats.Errors++
		r.loader.record("line", OutcomeError)
		return
	}

	_, hasStations := keys["stations"]
	_, hasHourly := keys["hourly"]
	_, hasID := keys[domain.FieldStationID]
	_, hasTS := keys[domain.FieldTimestamp]

	switch {
	case hasStations && hasHourly:
		var bulk bulkLine
		if err := json.Unmarshal(line, &bulk); err != nil {
			r.loader.logger.Debug("invalid bulk line", "line", lineNum, "error", err)
			stats.Errors++
			r.loader.record("line", OutcomeError)
			return
		}
		for _, m := range bulk.Stations {
			stats.countStation(r.station(ctx, domain.StationFromMap(m)))
		}
		for id, raw := range bulk.Hourly {
			var rows []map[string]any
			if err := json.Unmarshal(raw, &rows); err != nil {
				r.loader.logger.Debug("skipping non-list hourly entry", "line", lineNum, "key", id)
				continue
			}
			for _, row := range rows {
				stats.countObservation(r.observation(ctx, row, sourceName))
			}
		}
	case hasID && hasTS:
		var row map[string]any
		if err := json.Unmarshal(line, &row); err != nil {
			stats.Errors++
			r.loader.record("line", OutcomeError)
			return
		}
		stats.countObservation(r.observation(ctx, row, sourceName))
	default:
		r.loader.logger.Debug("line is neither a batch nor an observation", "line", lineNum)
		stats.Skipped++
		r.loader.record("line", OutcomeSkipped)
	}
}

func (r *Run) station(ctx context.Context, st domain.Station) Outcome {
	if err := st.Validate(); err != nil {
		r.loader.logger.Debug("station skipped", "error", err)
		return r.loader.record("station", OutcomeSkipped)
	}
	if _, ok := r.seen[st.ID]; ok {
		return r.loader.record("station", OutcomeUpdated)
	}
	inserted, err := r.loader.store.UpsertStation(ctx, st)
	if err != nil {
		r.loader.logger.Warn("upsert station failed", "station", st.ID, "error", err)
		return r.loader.record("station", OutcomeError)
	}
	r.seen[st.ID] = struct{}{}
	return r.loader.record("station", insertedOrUpdated(inserted))
}

func (r *Run) observation(ctx context.Context, row map[string]any, sourceName string) Outcome {
	obs := domain.ObservationFromMap(row)
	if err := obs.Validate(); err != nil {
		r.loader.logger.Debug("observation skipped",
			"station", obs.StationID,
			"timestamp", obs.Timestamp,
			"error", err,
		)
		return r.loader.record("observation", OutcomeSkipped)
	}
	obs.Source = sourceName
	obs.IngestedAt = domain.NowTimestamp()

	inserted, err := r.loader.store.UpsertObservation(ctx, obs)
	if err != nil {
		r.loader.logger.Warn("upsert observation failed",
			"station", obs.StationID,
			"timestamp", obs.Timestamp,
			"error", err,
		)
		return r.loader.record("observation", OutcomeError)
	}
	return r.loader.record("observation", insertedOrUpdated(inserted))
}

// LoadSchemaMetadata upserts one schema document per output field and
// returns how many were written. Per-field failures are logged and skipped.
func (l *Loader) LoadSchemaMetadata(ctx context.Context, fields []config.MetadataField) (int, error) {
	count := 0
	now := domain.Now()
	for _, f := range fields {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		inserted, err := l.store.UpsertSchemaField(ctx, domain.NewSchemaField(f.Name, f.Description, now))
		if err != nil {
			l.logger.Warn("upsert schema field failed", "field", f.Name, "error", err)
			l.record("schema", OutcomeError)
			continue
		}
		l.record("schema", insertedOrUpdated(inserted))
		count++
	}
	l.logger.Info("schema metadata loaded", "fields", count)
	return count, nil
}

func (l *Loader) record(entity string, o Outcome) Outcome {
	l.metrics.LoadOutcomes.WithLabelValues(entity, string(o)).Inc()
	return o
}

func insertedOrUpdated(inserted bool) Outcome {
	if inserted {
		return OutcomeInserted
	}
	return OutcomeUpdated
}
