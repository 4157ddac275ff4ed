package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func reindexCmd(configPath *string) *cobra.Command {
	var batchSize int

	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the product vector index from the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.close()

			if batchSize <= 0 {
				batchSize = a.cfg.Search.IndexBatchSize
			}
			count, err := a.svc.Search.IndexAll(cmd.Context(), batchSize)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Successfully indexed %d products\n", count)
			return nil
		},
	}
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "products per embedding batch (default from config)")
	return cmd
}
