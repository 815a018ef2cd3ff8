// Command benchmark-lambda runs the observation query benchmark as an AWS
// Lambda function.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/greencoop/weather-etl/internal/adapter/cloudwatch"
	"github.com/greencoop/weather-etl/internal/adapter/mongo"
	"github.com/greencoop/weather-etl/internal/benchmark"
	"github.com/greencoop/weather-etl/internal/config"
	"github.com/greencoop/weather-etl/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg).With("command", "benchmark-lambda")
	metrics := observability.NewMetrics()
	ctx := context.Background()

	store, err := mongo.Connect(ctx, mongo.Options{
		URI:                    cfg.MongoURI,
		Database:               cfg.DatabaseName,
		ServerSelectionTimeout: cfg.MongoServerSelectionTimeout,
		ConnectTimeout:         cfg.MongoConnectTimeout,
	}, logger)
	if err != nil {
		logger.Error("mongodb unavailable", "error", err)
		os.Exit(1)
	}

	recorders := []benchmark.Recorder{benchmark.NewPrometheusRecorder(metrics)}
	if cfg.CloudWatchNamespace != "" {
		cw, err := cloudwatch.NewRecorderFromEnv(ctx, cfg.AWSRegion, cfg.CloudWatchNamespace, cfg.Environment)
		if err != nil {
			logger.Error("cloudwatch export disabled", "error", err)
		} else {
			recorders = append(recorders, cw)
		}
	}

	h := &Handler{runner: benchmark.NewRunner(store, logger, recorders...), logger: logger}
	lambda.Start(func(ctx context.Context, ev Event) (Response, error) {
		resp, err := h.Handle(ctx, ev)
		if cfg.PushgatewayURL != "" {
			if err := observability.Push(ctx, cfg.PushgatewayURL, "weather_etl_benchmark"); err != nil {
				logger.Warn("metrics push failed", "error", err)
			}
		}
		return resp, err
	})
}
