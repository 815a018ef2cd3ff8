package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/greencoop/weather-etl/internal/adapter/blob"
	"github.com/greencoop/weather-etl/internal/adapter/fetch"
	kafkaadapter "github.com/greencoop/weather-etl/internal/adapter/kafka"
	"github.com/greencoop/weather-etl/internal/adapter/mapbox"
	mongostore "github.com/greencoop/weather-etl/internal/adapter/mongo"
	"github.com/greencoop/weather-etl/internal/config"
	"github.com/greencoop/weather-etl/internal/domain"
	"github.com/greencoop/weather-etl/internal/observability"
	"github.com/greencoop/weather-etl/internal/pipeline"
	"github.com/greencoop/weather-etl/internal/quality"
	"github.com/greencoop/weather-etl/internal/source"
)

// Report file names under REPORT_DIR.
const (
	ingestionReportFile   = "ingestion_report.txt"
	qualityReportFile     = "quality_report.txt"
	qualityReportJSONFile = "quality_report.json"
)

// app carries the configuration and observability shared by every command.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
	runID   string
	command string
}

func newApp(command string, flags *globalFlags) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if flags.sourcesFile != "" {
		cfg.ConfigFile = flags.sourcesFile
	}
	if flags.localStorage != "" {
		cfg.LocalStorage = flags.localStorage
	}

	runID := uuid.NewString()
	logger := observability.NewLogger(cfg).With("run_id", runID, "command", command)
	return &app{
		cfg:     cfg,
		logger:  logger,
		metrics: observability.NewMetrics(),
		runID:   runID,
		command: command,
	}, nil
}

// finish pushes the run's metrics when a Pushgateway is configured.
func (a *app) finish(ctx context.Context) {
	if a.cfg.PushgatewayURL == "" {
		return
	}
	if err := observability.Push(ctx, a.cfg.PushgatewayURL, "weather_etl_"+a.command); err != nil {
		a.logger.Warn("metrics push failed", "error", err)
	}
}

// geocoder returns the station enricher, or nil when Mapbox is disabled.
func (a *app) geocoder() domain.Geocoder {
	if !a.cfg.MapboxEnabled {
		a.metrics.GeocodeEnabled.Set(0)
		a.logger.Info("mapbox geocoding disabled")
		return nil
	}
	a.metrics.GeocodeEnabled.Set(1)
	client := mapbox.NewClient(a.cfg.MapboxToken, a.cfg.MapboxTimeout, a.metrics, a.logger)
	a.logger.Info("mapbox geocoding enabled", "cache_size", a.cfg.MapboxCacheSize, "timeout", a.cfg.MapboxTimeout)
	return mapbox.NewCachedGeocoder(client, a.cfg.MapboxCacheSize, a.metrics)
}

// batchStore returns where batch records live: the local directory, or the
// S3 prefix. A nil store with a nil error means S3 is selected but unusable.
func (a *app) batchStore(ctx context.Context) (blob.Store, error) {
	if !a.cfg.UseS3() {
		return blob.NewLocal(a.cfg.LocalStorage), nil
	}
	if a.cfg.S3Bucket == "" {
		return nil, errors.New("S3_BUCKET is not set")
	}
	s, err := blob.NewS3FromEnv(ctx, a.cfg.AWSRegion, a.cfg.S3Bucket, a.cfg.S3Path)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (a *app) loadSources() (*config.Sources, error) {
	sources, err := config.LoadSources(a.cfg.ConfigFile)
	if err != nil {
		return nil, err
	}
	a.logger.Info("sources loaded", "file", a.cfg.ConfigFile, "sources", len(sources.Sources))
	return sources, nil
}

func (a *app) preprocess(ctx context.Context, compress bool) (pipeline.PreprocessResult, error) {
	sources, err := a.loadSources()
	if err != nil {
		return pipeline.PreprocessResult{}, err
	}

	fetcher := fetch.NewClient(a.cfg.DownloadDir, a.cfg.FetchTimeout, a.logger)
	opts := pipeline.PreprocessOptions{
		Sources: sources,
		NewAdapter: func(src config.Source) (source.Adapter, error) {
			return source.New(src, fetcher, a.logger)
		},
		Prefix:   a.cfg.S3Path,
		Compress: compress,
	}
	if g := a.geocoder(); g != nil {
		opts.Geocoder = g
	}

	if a.cfg.UseS3() {
		out, err := a.batchStore(ctx)
		if err != nil {
			a.logger.Error("S3 unavailable, batch record will be saved locally", "error", err, "dir", pipeline.FallbackDir)
		} else {
			opts.Output = out
		}
	} else {
		opts.Fallback = blob.NewLocal(a.cfg.LocalStorage)
	}

	res, err := pipeline.NewPreprocessor(opts, a.logger, a.metrics).Run(ctx)
	if err != nil {
		return res, err
	}
	a.logger.Info("preprocessing complete",
		"location", res.Location,
		"stations", res.Stations,
		"records", res.Records,
		"failed_sources", res.FailedSources,
	)
	return res, nil
}

func (a *app) connect(ctx context.Context) (*mongostore.Store, error) {
	return mongostore.Connect(ctx, mongostore.Options{
		URI:                    a.cfg.MongoURI,
		Database:               a.cfg.DatabaseName,
		ServerSelectionTimeout: a.cfg.MongoServerSelectionTimeout,
		ConnectTimeout:         a.cfg.MongoConnectTimeout,
	}, a.logger)
}

func (a *app) close(store *mongostore.Store) {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := store.Close(ctx); err != nil {
		a.logger.Warn("mongodb disconnect failed", "error", err)
	}
}

// load ingests every batch file into store and writes the ingestion report.
func (a *app) load(ctx context.Context, store pipeline.Store) (pipeline.LoadStats, error) {
	var stats pipeline.LoadStats

	files, err := a.batchStore(ctx)
	if err != nil {
		return stats, fmt.Errorf("open batch store: %w", err)
	}
	loader := pipeline.NewLoader(store, a.logger, a.metrics)

	sources, err := a.loadSources()
	if err != nil {
		a.logger.Warn("schema metadata not loaded", "error", err)
	} else {
		n, err := loader.LoadSchemaMetadata(ctx, sources.OutputMetadata)
		if err != nil {
			return stats, err
		}
		stats.SchemaFieldsLoaded = n
	}

	fileStats, err := pipeline.NewIngester(files, loader, a.logger).IngestAll(ctx)
	if err != nil {
		return stats, err
	}
	stats.Add(fileStats)

	report := pipeline.RenderIngestionReport(stats)
	path := filepath.Join(a.cfg.ReportDir, ingestionReportFile)
	if err := pipeline.WriteReport(path, report); err != nil {
		return stats, err
	}
	a.logger.Info("ingestion complete",
		"report", path,
		"files", stats.Files,
		"observations_inserted", stats.ObservationsInserted,
		"observations_updated", stats.ObservationsUpdated,
		"skipped", stats.Skipped,
		"errors", stats.Errors,
	)
	fmt.Println(report)

	a.withPublisher(func(p *kafkaadapter.Publisher) error {
		return p.PublishIngestion(ctx, stats)
	})
	return stats, nil
}

// checkQuality runs the engine on store and writes the text and JSON reports.
func (a *app) checkQuality(ctx context.Context, store quality.Store) (*quality.Report, error) {
	engine := quality.NewEngine(store, a.cfg.Quality, a.logger, a.metrics)
	report, err := engine.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("run quality checks: %w", err)
	}

	text := quality.RenderText(report)
	if err := pipeline.WriteReport(filepath.Join(a.cfg.ReportDir, qualityReportFile), text); err != nil {
		return report, err
	}
	data, err := quality.RenderJSON(report)
	if err != nil {
		return report, err
	}
	if err := pipeline.WriteReport(filepath.Join(a.cfg.ReportDir, qualityReportJSONFile), string(data)); err != nil {
		return report, err
	}
	for _, alert := range report.Alerts {
		a.logger.Warn("quality alert", "check", alert.Check, "message", alert.Message)
	}
	fmt.Println(text)

	a.withPublisher(func(p *kafkaadapter.Publisher) error {
		return p.PublishReport(ctx, report)
	})
	return report, nil
}

// withPublisher runs fn against a Kafka publisher when brokers are configured.
// Publishing failures are logged; they never fail the run.
func (a *app) withPublisher(fn func(*kafkaadapter.Publisher) error) {
	if len(a.cfg.KafkaBrokers) == 0 {
		return
	}
	p := kafkaadapter.NewPublisher(a.cfg, a.runID, a.logger)
	defer func() {
		if err := p.Close(); err != nil {
			a.logger.Warn("kafka publisher close error", "error", err)
		}
	}()
	if err := fn(p); err != nil {
		a.logger.Warn("kafka publish failed", "error", err)
	}
}
