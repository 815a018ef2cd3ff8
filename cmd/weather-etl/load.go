package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/greencoop/weather-etl/internal/adapter/memory"
	"github.com/greencoop/weather-etl/internal/pipeline"
)

type loadOptions struct {
	dryRun          bool
	dropCollections bool
}

func loadCmd(flags *globalFlags) *cobra.Command {
	var opts loadOptions

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Ingest batch records into MongoDB and write the ingestion report",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp("load", flags)
			if err != nil {
				return err
			}
			defer a.finish(cmd.Context())

			_, err = a.runLoad(cmd.Context(), opts)
			return err
		},
	}
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "load into memory and run the quality checks without touching MongoDB")
	cmd.Flags().BoolVar(&opts.dropCollections, "drop-collections", false, "drop and recreate the collections before loading")
	return cmd
}

// runLoad ingests into MongoDB, or into memory on a dry run. A dry run also
// runs the quality checks, since nothing else can read the loaded data.
func (a *app) runLoad(ctx context.Context, opts loadOptions) (pipeline.LoadStats, error) {
	if opts.dryRun {
		a.logger.Info("dry run, loading into memory")
		store := memory.New()
		stats, err := a.load(ctx, store)
		if err != nil {
			return stats, err
		}
		_, err = a.checkQuality(ctx, store)
		return stats, err
	}

	store, err := a.connect(ctx)
	if err != nil {
		return pipeline.LoadStats{}, err
	}
	defer a.close(store)

	if err := store.EnsureSchema(ctx, opts.dropCollections); err != nil {
		return pipeline.LoadStats{}, fmt.Errorf("ensure schema: %w", err)
	}
	return a.load(ctx, store)
}
