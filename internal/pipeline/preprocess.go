package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/greencoop/weather-etl/internal/adapter/blob"
	"github.com/greencoop/weather-etl/internal/config"
	"github.com/greencoop/weather-etl/internal/domain"
	"github.com/greencoop/weather-etl/internal/observability"
	"github.com/greencoop/weather-etl/internal/source"
)

// FallbackDir receives batch records when the remote store cannot be used.
const FallbackDir = "data/clean"

// AdapterFactory builds the adapter for one configured source.
type AdapterFactory func(src config.Source) (source.Adapter, error)

// checker is implemented by stores that can verify connectivity before writing.
type checker interface {
	Check(ctx context.Context) error
}

// PreprocessOptions configures a Preprocessor.
type PreprocessOptions struct {
	Sources    *config.Sources
	NewAdapter AdapterFactory
	Geocoder   domain.Geocoder // optional
	Output     blob.Store      // nil selects Fallback directly
	Fallback   blob.Store
	Prefix     string
	Compress   bool
}

// PreprocessResult summarizes one preprocessing run.
type PreprocessResult struct {
	Location       string
	Stations       int
	Records        int
	Filtered       int
	FailedSources  []string
	SucceededCount int
}

// Preprocessor runs every configured source, merges the results and saves
// them as one batch record.
type Preprocessor struct {
	opts    PreprocessOptions
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewPreprocessor creates a Preprocessor.
func NewPreprocessor(opts PreprocessOptions, logger *slog.Logger, metrics *observability.Metrics) *Preprocessor {
	if opts.Fallback == nil {
		opts.Fallback = blob.NewLocal(FallbackDir)
	}
	return &Preprocessor{opts: opts, logger: logger, metrics: metrics}
}

// Run processes the sources in declaration order. A failing source is logged
// and skipped; only a failure to save the batch record is returned.
func (p *Preprocessor) Run(ctx context.Context) (PreprocessResult, error) {
	var (
		res     PreprocessResult
		results []source.Result
	)
	for _, src := range p.opts.Sources.Sources {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		r, filtered, err := p.runSource(ctx, src)
		if err != nil {
			p.logger.Error("source failed, skipping", "source", src.ID, "error", err)
			p.metrics.SourcesProcessed.WithLabelValues("error").Inc()
			res.FailedSources = append(res.FailedSources, src.ID)
			continue
		}
		p.metrics.SourcesProcessed.WithLabelValues("success").Inc()
		res.SucceededCount++
		res.Filtered += filtered
		results = append(results, r)
	}

	merged := Merge(results)
	for i, st := range merged.Stations {
		merged.Stations[i] = domain.EnrichStation(ctx, st, p.opts.Geocoder, p.logger)
	}
	res.Stations = len(merged.Stations)
	res.Records = merged.RecordCount()

	p.logger.Info("sources merged",
		"stations", res.Stations,
		"records", res.Records,
		"succeeded", res.SucceededCount,
		"failed", len(res.FailedSources),
	)

	loc, err := p.save(ctx, merged, domain.Now())
	if err != nil {
		return res, err
	}
	res.Location = loc
	return res, nil
}

func (p *Preprocessor) runSource(ctx context.Context, src config.Source) (source.Result, int, error) {
	adapter, err := p.opts.NewAdapter(src)
	if err != nil {
		return source.Result{}, 0, err
	}
	start := time.Now()
	r, err := adapter.Read(ctx)
	if err != nil {
		return source.Result{}, 0, fmt.Errorf("read source %s: %w", src.ID, err)
	}
	read := r.RecordCount()
	p.metrics.RecordsRead.Add(float64(read))

	filtered := 0
	if src.FilterEmptyRows() {
		filtered = source.FilterEmptyRows(r.Hourly)
		p.metrics.RecordsFiltered.Add(float64(filtered))
	}
	p.logger.Info("source processed",
		"source", src.ID,
		"name", adapter.Name(),
		"stations", len(r.Stations),
		"records", read-filtered,
		"filtered", filtered,
		"duration", time.Since(start),
	)
	return r, filtered, nil
}

// save writes the batch record to Output, falling back to the local
// fallback directory when Output is missing, unreachable or rejects the write.
func (p *Preprocessor) save(ctx context.Context, merged source.Result, now time.Time) (string, error) {
	record := BatchRecord{
		Status:   StatusOK,
		Stations: merged.Stations,
		Metadata: Metadata(p.opts.Sources.OutputMetadata),
		Hourly:   merged.Hourly,
	}
	data, err := record.Encode()
	if err != nil {
		return "", err
	}
	name := BatchFileName(p.opts.Prefix, now)
	if p.opts.Compress {
		if data, err = blob.Encode(data); err != nil {
			return "", err
		}
		name += ".zst"
	}

	if out := p.opts.Output; out != nil {
		loc, err := p.put(ctx, out, name, data)
		if err == nil {
			p.logger.Info("batch record saved", "location", loc, "bytes", len(data))
			return loc, nil
		}
		p.logger.Error("remote save failed, falling back to local storage", "error", err, "dir", FallbackDir)
	}

	loc, err := p.opts.Fallback.Put(ctx, name, data)
	if err != nil {
		return "", fmt.Errorf("save batch record: %w", err)
	}
	p.logger.Info("batch record saved", "location", loc, "bytes", len(data))
	return loc, nil
}

func (p *Preprocessor) put(ctx context.Context, out blob.Store, name string, data []byte) (string, error) {
	if c, ok := out.(checker); ok {
		if err := c.Check(ctx); err != nil {
			return "", err
		}
	}
	return out.Put(ctx, name, data)
}
