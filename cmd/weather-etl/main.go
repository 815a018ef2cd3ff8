// Command weather-etl ingests weather observations into MongoDB and checks
// their quality.
//
// Usage:
//
//	weather-etl preprocess            # sources -> batch record (local or S3)
//	weather-etl load [--dry-run]      # batch records -> MongoDB
//	weather-etl quality               # post-load quality report
//	weather-etl run                   # all three in sequence
//	weather-etl serve                 # health, metrics and /quality over HTTP
//	weather-etl benchmark [--date D]  # one-day query timing per station
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var version = "dev"

// globalFlags override the matching environment settings when set.
type globalFlags struct {
	sourcesFile  string
	localStorage string
}

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env file", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var flags globalFlags

	root := &cobra.Command{
		Use:           "weather-etl",
		Short:         "Weather observation ingestion and quality assurance",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.sourcesFile, "config", "", "sources file (overrides CONFIG_FILE)")
	root.PersistentFlags().StringVar(&flags.localStorage, "local-storage", "", "local batch directory (overrides LOCAL_STORAGE, disables S3)")

	root.AddCommand(preprocessCmd(&flags))
	root.AddCommand(loadCmd(&flags))
	root.AddCommand(qualityCmd(&flags))
	root.AddCommand(runCmd(&flags))
	root.AddCommand(serveCmd(&flags))
	root.AddCommand(benchmarkCmd(&flags))
	return root
}
