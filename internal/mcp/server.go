// Package mcp exposes the search engine to AI clients over the Model Context
// Protocol: hybrid search, documentation search, and index diagnostics.
package mcp

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	kerrors "github.com/kestrelhq/kestrel/internal/errors"
	"github.com/kestrelhq/kestrel/internal/index"
	"github.com/kestrelhq/kestrel/internal/search"
	"github.com/kestrelhq/kestrel/pkg/version"
)

// Server bridges MCP clients with the hybrid search engine. It holds
// non-owning references; the caller keeps ownership of the manager.
type Server struct {
	mcp      *mcp.Server
	engine   *search.Engine
	snippets *search.SnippetSearch
	manager  *index.Manager
	logger   *slog.Logger
}

// NewServer creates an MCP server over the engine and manager.
func NewServer(engine *search.Engine, snippets *search.SnippetSearch, manager *index.Manager) (*Server, error) {
	if engine == nil {
		return nil, kerrors.ConfigError("search engine is required", nil)
	}
	if manager == nil {
		return nil, kerrors.ConfigError("index manager is required", nil)
	}

	s := &Server{
		engine:   engine,
		snippets: snippets,
		manager:  manager,
		logger:   slog.Default(),
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "kestrel",
			Version: version.Version,
		},
		nil,
	)
	s.registerTools()
	return s, nil
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search",
		Description: "Hybrid code search over the indexed tree. Fuses keyword and semantic signals, understands 'what implements X' questions, and can follow referenced symbols with multi_hop.",
	}, s.searchHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_docs",
		Description: "Documentation search over markdown sections and doc comments. Preserves the heading hierarchy so you know where in the docs a match sits.",
	}, s.searchDocsHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "index_status",
		Description: "Report index statistics and whether the chunk and vector stores are consistent.",
	}, s.indexStatusHandler)

	s.logger.Debug("mcp tools registered", slog.Int("count", 3))
}

func (s *Server) searchHandler(ctx context.Context, req *mcp.CallToolRequest, input SearchInput) (
	*mcp.CallToolResult,
	SearchOutput,
	error,
) {
	if input.Query == "" {
		return nil, SearchOutput{}, kerrors.New(kerrors.KindSearch, kerrors.CodeInvalidInput, "query is required", nil)
	}

	opts := search.DefaultOptions()
	if input.Limit > 0 {
		opts.Limit = input.Limit
	}
	opts.PathFilter = input.PathFilter
	opts.ExtensionFilter = input.Extensions
	if input.MultiHop {
		opts.MultiHop = true
		opts.MultiHopDepth = input.MultiHopDepth
		if opts.MultiHopDepth <= 0 {
			opts.MultiHopDepth = 1
		}
	}

	results, err := s.engine.Search(ctx, input.Query, opts)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{Results: make([]SearchResultOutput, 0, len(results))}
	for _, r := range results {
		output.Results = append(output.Results, SearchResultOutput{
			Path:             r.Chunk.Path,
			StartLine:        r.Chunk.StartLine,
			EndLine:          r.Chunk.EndLine,
			Kind:             string(r.Chunk.Kind),
			Symbol:           r.Chunk.QualifiedName(),
			Signature:        r.Chunk.Signature,
			Content:          r.Chunk.Content,
			Score:            r.Score,
			ExactSymbolMatch: r.ExactSymbolMatch,
			IsMultiHop:       r.IsMultiHop,
			HopDepth:         r.HopDepth,
		})
	}
	return nil, output, nil
}

func (s *Server) searchDocsHandler(ctx context.Context, req *mcp.CallToolRequest, input SearchDocsInput) (
	*mcp.CallToolResult,
	SearchDocsOutput,
	error,
) {
	if input.Query == "" {
		return nil, SearchDocsOutput{}, kerrors.New(kerrors.KindSearch, kerrors.CodeInvalidInput, "query is required", nil)
	}
	limit := input.Limit
	if limit <= 0 {
		limit = 10
	}

	hits, err := s.snippets.SearchInfoSnippets(ctx, input.Query, limit, input.PathFilter)
	if err != nil {
		return nil, SearchDocsOutput{}, err
	}

	output := SearchDocsOutput{Snippets: make([]SnippetOutput, 0, len(hits))}
	for _, hit := range hits {
		output.Snippets = append(output.Snippets, SnippetOutput{
			Path:       hit.Snippet.Path,
			Breadcrumb: hit.Snippet.Breadcrumb,
			Content:    hit.Snippet.Content,
			StartLine:  hit.Snippet.StartLine,
			Score:      hit.Score,
		})
	}
	return nil, output, nil
}

func (s *Server) indexStatusHandler(ctx context.Context, req *mcp.CallToolRequest, _ IndexStatusInput) (
	*mcp.CallToolResult,
	IndexStatusOutput,
	error,
) {
	stats, err := s.manager.Statistics(ctx)
	if err != nil {
		return nil, IndexStatusOutput{}, err
	}
	return nil, IndexStatusOutput{
		ChunkCount:   stats.ChunkCount,
		VectorCount:  stats.VectorCount,
		SnippetCount: stats.SnippetCount,
		FileCount:    stats.FileCount,
		IsConsistent: stats.IsConsistent,
	}, nil
}

// Serve runs the server over stdio until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("starting mcp server", slog.String("transport", "stdio"))
	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && err != context.Canceled {
		s.logger.Error("mcp server stopped", slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("mcp server stopped")
	return nil
}
