package cmd

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kestrelhq/kestrel/internal/indexer"
	"github.com/kestrelhq/kestrel/internal/parser"
	"github.com/kestrelhq/kestrel/internal/ui"
)

func newIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index the project tree",
		Long:  "Walk the project tree, extract chunks, embed them, and persist the index.",
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

			p := parser.New()
			defer p.Close()

			ix := indexer.New(mgr, p, embedder, indexer.Config{
				ExcludePatterns:   cfg.Paths.Exclude,
				IncludeExtensions: cfg.Paths.IncludeExtensions,
			})

			files, err := collectFiles(flagRoot)
			if err != nil {
				return err
			}

			tracker := ui.NewTracker(len(files))
			reporter := ui.NewPlainReporter(cmd.OutOrStdout(), 50)
			interactive := ui.IsTerminal(cmd.OutOrStdout())

			run := func() error {
				for i, file := range files {
					if err := ix.IndexFile(ctx, file); err != nil {
						tracker.AddError()
					}
					tracker.Update(i+1, file)
					if !interactive {
						reporter.Report(i+1, len(files), file)
					}
				}
				tracker.Finish()
				return mgr.Save()
			}

			if interactive {
				program := ui.NewProgressProgram(tracker)
				done := make(chan error, 1)
				go func() { done <- run() }()
				if _, err := program.Run(); err != nil {
					return err
				}
				if err := <-done; err != nil {
					return err
				}
			} else if err := run(); err != nil {
				return err
			}

			stats := ix.Stats()
			fmt.Fprintf(cmd.OutOrStdout(),
				"indexed %d files (%d chunks, %d skipped, %d errors)\n",
				stats.FilesCreated+stats.FilesModified, stats.ChunksAdded,
				stats.FilesSkipped, stats.Errors)
			return nil
		},
	}
	return cmd
}

// collectFiles lists regular files under root, skipping hidden directories.
func collectFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped
		}
		name := d.Name()
		if d.IsDir() {
			if len(name) > 1 && name[0] == '.' && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if info, err := os.Stat(path); err != nil || !info.Mode().IsRegular() {
			return nil
		}
		files = append(files, path)
		return nil
	})
	return files, err
}
