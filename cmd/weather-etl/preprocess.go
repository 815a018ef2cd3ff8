package main

import (
	"github.com/spf13/cobra"
)

func preprocessCmd(flags *globalFlags) *cobra.Command {
	var compress bool

	cmd := &cobra.Command{
		Use:   "preprocess",
		Short: "Read every configured source and save one merged batch record",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp("preprocess", flags)
			if err != nil {
				return err
			}
			defer a.finish(cmd.Context())

			_, err = a.preprocess(cmd.Context(), compress)
			return err
		},
	}
	cmd.Flags().BoolVar(&compress, "compress", false, "zstd-compress the batch record")
	return cmd
}
