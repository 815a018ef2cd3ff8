package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/greencoop/weather-etl/internal/adapter/blob"
)

// Ingester loads every batch file found in a blob store.
type Ingester struct {
	files  blob.Store
	loader *Loader
	logger *slog.Logger
}

// NewIngester creates an Ingester reading from files.
func NewIngester(files blob.Store, loader *Loader, logger *slog.Logger) *Ingester {
	return &Ingester{files: files, loader: loader, logger: logger}
}

// IngestAll loads the batch files in sorted key order within one load run.
// Each file's stem becomes the source name of its observations. A file that
// cannot be read or decoded counts as one error and the run continues.
func (i *Ingester) IngestAll(ctx context.Context) (LoadStats, error) {
	var total LoadStats
	keys, err := i.files.List(ctx)
	if err != nil {
		return total, fmt.Errorf("list batch files: %w", err)
	}
	i.logger.Info("batch files found", "count", len(keys))

	run := i.loader.NewRun()
	for _, key := range keys {
		if !blob.IsBatchFile(key) {
			continue
		}
		stats, err := i.ingestFile(ctx, run, key)
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
		if err != nil {
			i.logger.Error("batch file failed", "file", i.files.Location(key), "error", err)
			total.Errors++
			continue
		}
		i.logger.Info("batch file loaded",
			"file", i.files.Location(key),
			"stations_inserted", stats.StationsInserted,
			"stations_updated", stats.StationsUpdated,
			"observations_inserted", stats.ObservationsInserted,
			"observations_updated", stats.ObservationsUpdated,
			"skipped", stats.Skipped,
			"errors", stats.Errors,
		)
		total.Add(stats)
	}
	return total, nil
}

func (i *Ingester) ingestFile(ctx context.Context, run *Run, key string) (LoadStats, error) {
	raw, err := i.files.Get(ctx, key)
	if err != nil {
		return LoadStats{}, err
	}
	data, err := blob.Decode(key, raw)
	if err != nil {
		return LoadStats{}, err
	}
	return run.Load(ctx, bytes.NewReader(data), blob.Stem(key))
}
