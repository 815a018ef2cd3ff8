package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/greencoop/weather-etl/internal/adapter/cloudwatch"
	"github.com/greencoop/weather-etl/internal/benchmark"
	"github.com/greencoop/weather-etl/internal/pipeline"
)

const benchmarkReportFile = "performance_report.json"

func benchmarkCmd(flags *globalFlags) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "benchmark",
		Short: "Time the one-day observation query of every station",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			day, err := benchmark.TargetDay(date)
			if err != nil {
				return err
			}

			a, err := newApp("benchmark", flags)
			if err != nil {
				return err
			}
			defer a.finish(ctx)

			store, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer a.close(store)

			summary, err := a.benchmarkRunner(ctx, store).Run(ctx, day)
			if errors.Is(err, benchmark.ErrNoStations) {
				return nil
			}
			if err != nil {
				return err
			}
			return a.writeBenchmark(summary)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "target day as YYYY-MM-DD (default yesterday, UTC)")
	return cmd
}

// benchmarkRunner exports to Prometheus, and to CloudWatch when a namespace
// is configured.
func (a *app) benchmarkRunner(ctx context.Context, store benchmark.Store) *benchmark.Runner {
	recorders := []benchmark.Recorder{benchmark.NewPrometheusRecorder(a.metrics)}
	if a.cfg.CloudWatchNamespace != "" {
		cw, err := cloudwatch.NewRecorderFromEnv(ctx, a.cfg.AWSRegion, a.cfg.CloudWatchNamespace, a.cfg.Environment)
		if err != nil {
			a.logger.Warn("cloudwatch export disabled", "error", err)
		} else {
			recorders = append(recorders, cw)
		}
	}
	return benchmark.NewRunner(store, a.logger, recorders...)
}

func (a *app) writeBenchmark(summary *benchmark.Summary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("encode benchmark summary: %w", err)
	}
	path := filepath.Join(a.cfg.ReportDir, benchmarkReportFile)
	if err := pipeline.WriteReport(path, string(data)); err != nil {
		return err
	}
	a.logger.Info("benchmark report written", "report", path)
	fmt.Println(string(data))
	return nil
}
