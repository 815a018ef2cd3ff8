package main

import (
	"github.com/spf13/cobra"
)

func qualityCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "quality",
		Short: "Run the quality checks against MongoDB and write the reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp("quality", flags)
			if err != nil {
				return err
			}
			defer a.finish(cmd.Context())

			store, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close(store)

			_, err = a.checkQuality(cmd.Context(), store)
			return err
		},
	}
}
