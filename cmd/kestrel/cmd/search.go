package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kestrelhq/kestrel/internal/llm"
	"github.com/kestrelhq/kestrel/internal/search"
	"github.com/kestrelhq/kestrel/internal/ui"
)

func newSearchCmd() *cobra.Command {
	var (
		limit          int
		semanticWeight float64
		pathFilter     string
		extensions     []string
		multiHop       bool
		multiHopDepth  int
		expandQuery    bool
		synthesize     bool
		asJSON         bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			query := strings.Join(args, " ")

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

			llmChain := llm.NewChain(llm.NewOllamaProvider(cfg.Embeddings.OllamaHost, ""))

			// Expansion failures fall back to the unexpanded query silently.
			effectiveQuery := query
			if expandQuery {
				expander := llm.NewExpander(llmChain)
				if expanded, err := expander.Expand(ctx, query); err == nil {
					effectiveQuery = expanded.CombinedQuery
				} else {
					slog.Debug("query expansion failed, using original query",
						slog.String("query", query),
						slog.String("error", err.Error()))
				}
			}

			opts := search.Options{
				Limit:           limit,
				SemanticWeight:  semanticWeight,
				PathFilter:      pathFilter,
				ExtensionFilter: extensions,
				RRFK:            cfg.Search.RRFK,
				MultiHop:        multiHop,
				MultiHopDepth:   multiHopDepth,
			}
			results, err := engine.Search(ctx, effectiveQuery, opts)
			if err != nil {
				return err
			}

			if asJSON {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(results)
			}
			printResults(cmd, results)

			if synthesize && len(results) > 0 {
				synth := llm.NewSynthesizer(llmChain)
				answer, err := synth.Synthesize(ctx, query, results)
				if err != nil {
					slog.Debug("synthesis failed", slog.String("error", err.Error()))
				} else if answer != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n", answer)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum number of results")
	cmd.Flags().Float64Var(&semanticWeight, "semantic-weight", 0.65, "semantic share of fusion (0-1)")
	cmd.Flags().StringVar(&pathFilter, "path", "", "glob restricting result paths")
	cmd.Flags().StringSliceVar(&extensions, "ext", nil, "restrict results to these extensions")
	cmd.Flags().BoolVar(&multiHop, "multi-hop", false, "expand results by following referenced symbols")
	cmd.Flags().IntVar(&multiHopDepth, "multi-hop-depth", 1, "reference expansion depth")
	cmd.Flags().BoolVar(&expandQuery, "expand", false, "expand the query via the LLM chain")
	cmd.Flags().BoolVar(&synthesize, "synthesize", false, "synthesize an answer from the results")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit results as JSON")

	return cmd
}

func printResults(cmd *cobra.Command, results []*search.Result) {
	out := cmd.OutOrStdout()
	styles := ui.DefaultStyles()
	styled := ui.IsTerminal(out)

	if len(results) == 0 {
		fmt.Fprintln(out, "no results")
		return
	}

	for i, r := range results {
		location := fmt.Sprintf("%s:%d", r.Chunk.Path, r.Chunk.StartLine)
		score := fmt.Sprintf("%.4f", r.Score)
		var marks []string
		if r.ExactSymbolMatch {
			marks = append(marks, "exact")
		}
		if r.IsMultiHop {
			marks = append(marks, fmt.Sprintf("hop:%d", r.HopDepth))
		}
		suffix := ""
		if len(marks) > 0 {
			suffix = " [" + strings.Join(marks, ",") + "]"
		}

		if styled {
			fmt.Fprintf(out, "%2d. %s %s%s\n", i+1,
				styles.Path.Render(location), styles.Score.Render(score), suffix)
		} else {
			fmt.Fprintf(out, "%2d. %s %s%s\n", i+1, location, score, suffix)
		}
		if sig := r.Chunk.Signature; sig != "" {
			fmt.Fprintf(out, "    %s\n", sig)
		}
	}
}
