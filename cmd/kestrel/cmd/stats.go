package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show index statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			embedder := buildEmbedder(ctx, cfg)
			defer embedder.Close()

			mgr, err := openManager(cfg, embedder)
			if err != nil {
				return err
			}
			defer mgr.Close()

			stats, err := mgr.Statistics(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "chunks:     %d\n", stats.ChunkCount)
			fmt.Fprintf(out, "vectors:    %d\n", stats.VectorCount)
			fmt.Fprintf(out, "snippets:   %d\n", stats.SnippetCount)
			fmt.Fprintf(out, "files:      %d\n", stats.FileCount)
			fmt.Fprintf(out, "consistent: %v\n", stats.IsConsistent)
			return nil
		},
	}
	return cmd
}
