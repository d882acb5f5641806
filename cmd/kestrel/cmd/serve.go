package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kestrelhq/kestrel/internal/mcp"
	"github.com/kestrelhq/kestrel/internal/search"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve MCP tools over stdio",
		Long:  "Expose the search engine to AI clients as MCP tools (search, search_docs, index_status).",
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

			engine, cleanup, err := buildEngine(mgr, embedder, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			snippets := search.NewSnippetSearch(mgr.SnippetStore())
			server, err := mcp.NewServer(engine, snippets, mgr)
			if err != nil {
				return err
			}
			return server.Serve(ctx)
		},
	}
	return cmd
}
