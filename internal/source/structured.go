package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/greencoop/weather-etl/internal/adapter/blob"
	"github.com/greencoop/weather-etl/internal/config"
	"github.com/greencoop/weather-etl/internal/domain"
	"github.com/greencoop/weather-etl/internal/normalize"
)

const paramsKey = "_params"

// Structured reads a JSON API dump shaped as {"stations": [...], "hourly": {id: [...]}}.
type Structured struct {
	src     config.Source
	fetcher Fetcher
	logger  *slog.Logger
}

type structuredDoc struct {
	Stations []map[string]any          `json:"stations"`
	Hourly   map[string]json.RawMessage `json:"hourly"`
}

// Name returns the configured source name.
func (s *Structured) Name() string { return s.src.SourceName }

// Read loads the document and reconciles every observation.
func (s *Structured) Read(ctx context.Context) (Result, error) {
	path, err := resolveInput(ctx, s.src, s.fetcher)
	if err != nil {
		return Result{}, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("read %s: %w", path, err)
	}
	data, err := blob.Decode(path, raw)
	if err != nil {
		return Result{}, err
	}
	return s.parse(data)
}

func (s *Structured) parse(data []byte) (Result, error) {
	var doc structuredDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return Result{}, fmt.Errorf("decode %s: %w", s.src.ID, err)
	}

	res := Result{Hourly: make(map[string][]domain.Observation)}
	for _, m := range doc.Stations {
		st := domain.StationFromMap(m)
		st.City = st.Name
		st.State, st.Hardware, st.Software = nil, nil, nil
		res.Stations = append(res.Stations, st)
	}
	s.logger.Info("extracted stations", "count", len(res.Stations))

	for id, rawRows := range doc.Hourly {
		if id == paramsKey {
			continue
		}
		var rows []map[string]any
		if err := json.Unmarshal(rawRows, &rows); err != nil {
			s.logger.Debug("skipping non-list hourly entry", "key", id)
			continue
		}
		out := make([]domain.Observation, 0, len(rows))
		for _, row := range rows {
			out = append(out, s.observation(id, row))
		}
		s.logger.Debug("read station records", "station", id, "records", len(out))
		res.Hourly[id] = out
	}
	return res, nil
}

func (s *Structured) observation(key string, row map[string]any) domain.Observation {
	o := domain.ObservationFromMap(row)
	o.Timestamp = ""
	if ts := normalize.Timestamp(row[domain.FieldTimestamp]); ts != nil {
		o.Timestamp = *ts
	} else if row[domain.FieldTimestamp] != nil {
		s.logger.Warn("invalid timestamp format", "station", key, "value", row[domain.FieldTimestamp])
	}
	if o.StationID == "" {
		o.StationID = key
	}
	return o
}
