package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func runCmd(flags *globalFlags) *cobra.Command {
	var (
		compress bool
		opts     loadOptions
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Preprocess, load and check quality in one go",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp("run", flags)
			if err != nil {
				return err
			}
			defer a.finish(ctx)

			if _, err := a.preprocess(ctx, compress); err != nil {
				return err
			}
			if opts.dryRun {
				_, err := a.runLoad(ctx, opts)
				return err
			}

			store, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer a.close(store)

			if err := store.EnsureSchema(ctx, opts.dropCollections); err != nil {
				return fmt.Errorf("ensure schema: %w", err)
			}
			if _, err := a.load(ctx, store); err != nil {
				return err
			}
			_, err = a.checkQuality(ctx, store)
			return err
		},
	}
	cmd.Flags().BoolVar(&compress, "compress", false, "zstd-compress the batch record")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "load into memory instead of MongoDB")
	cmd.Flags().BoolVar(&opts.dropCollections, "drop-collections", false, "drop and recreate the collections before loading")
	return cmd
}
