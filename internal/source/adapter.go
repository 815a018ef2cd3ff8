// Package source reads raw weather inputs and emits stations and hourly
// observations in canonical form.
package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/greencoop/weather-etl/internal/config"
	"github.com/greencoop/weather-etl/internal/domain"
)

// ErrUnknownSourceType is returned by New for an unsupported source type.
var ErrUnknownSourceType = errors.New("unknown source type")

// Result is the canonical output of one adapter: stations and their hourly
// observations keyed by station ID.
type Result struct {
	Stations []domain.Station
	Hourly   map[string][]domain.Observation
}

// RecordCount returns the number of hourly observations.
func (r Result) RecordCount() int {
	n := 0
	for _, rows := range r.Hourly {
		n += len(rows)
	}
	return n
}

// Adapter reads one configured source.
type Adapter interface {
	Name() string
	Read(ctx context.Context) (Result, error)
}

// Fetcher downloads a remote input and returns its local path.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// New selects the adapter for src.Type.
func New(src config.Source, fetcher Fetcher, logger *slog.Logger) (Adapter, error) {
	logger = logger.With("source", src.ID)
	switch src.Type {
	case config.SourceTypeExcel:
		return &Tabular{src: src, fetcher: fetcher, logger: logger}, nil
	case config.SourceTypeJSON:
		return &Structured{src: src, fetcher: fetcher, logger: logger}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSourceType, src.Type)
	}
}

// resolveInput returns a local path for the source, fetching it first when remote.
func resolveInput(ctx context.Context, src config.Source, fetcher Fetcher) (string, error) {
	if !src.IsRemote() {
		return src.Input(), nil
	}
	if fetcher == nil {
		return "", fmt.Errorf("source %s is remote but no fetcher is configured", src.ID)
	}
	return fetcher.Fetch(ctx, src.Input())
}
