package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kestrelhq/kestrel/internal/indexer"
	"github.com/kestrelhq/kestrel/internal/parser"
	"github.com/kestrelhq/kestrel/internal/watcher"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the tree and keep the index fresh",
		Long:  "Run the incremental indexer over debounced file-system events until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

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

			p := parser.New()
			defer p.Close()

			ix := indexer.New(mgr, p, embedder, indexer.Config{
				ExcludePatterns:   cfg.Paths.Exclude,
				IncludeExtensions: cfg.Paths.IncludeExtensions,
			})

			w := watcher.NewFSWatcher(watcher.Options{
				DebounceWindow: cfg.DebounceWindow(),
			})
			if err := w.Start(ctx, flagRoot); err != nil {
				return err
			}
			defer w.Stop()

			fmt.Fprintf(cmd.OutOrStdout(), "watching %s (ctrl-c to stop)\n", flagRoot)
			if err := ix.Run(ctx, w.Events()); err != nil && ctx.Err() == nil {
				return err
			}

			stats := ix.Stats()
			fmt.Fprintf(cmd.OutOrStdout(),
				"\n%d created, %d modified, %d deleted, %d chunks, %d errors\n",
				stats.FilesCreated, stats.FilesModified, stats.FilesDeleted,
				stats.ChunksAdded, stats.Errors)
			return mgr.Save()
		},
	}
	return cmd
}
