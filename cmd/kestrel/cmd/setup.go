package cmd

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/kestrelhq/kestrel/internal/config"
	"github.com/kestrelhq/kestrel/internal/embed"
	"github.com/kestrelhq/kestrel/internal/index"
	"github.com/kestrelhq/kestrel/internal/search"
)

// buildEmbedder selects the embedding provider chain from config. With the
// default "ollama" provider, an unreachable server falls back to the static
// embedder so the engine keeps working offline.
func buildEmbedder(ctx context.Context, cfg *config.Config) embed.Embedder {
	switch cfg.Embeddings.Provider {
	case "static":
		return embed.NewStaticEmbedder()
	default:
		ollama := embed.NewOllamaEmbedder(embed.OllamaConfig{
			Host:       cfg.Embeddings.OllamaHost,
			Model:      cfg.Embeddings.Model,
			Dimensions: cfg.Embeddings.Dimensions,
		})
		if ollama.Available(ctx) {
			return ollama
		}
		slog.Warn("embedding backend unreachable, using static embeddings",
			slog.String("host", cfg.Embeddings.OllamaHost))
		return embed.NewStaticEmbedder()
	}
}

// openManager opens the index directory sized to the embedder's dimension.
func openManager(cfg *config.Config, embedder embed.Embedder) (*index.Manager, error) {
	dir := cfg.Paths.IndexDir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(flagRoot, dir)
	}
	return index.Open(dir, embedder.Dimensions())
}

// buildEngine wires the hybrid engine over the manager's stores, attaching
// the remote overlay when a snapshot mirror is configured. The returned
// cleanup closes the overlay manager, if any.
func buildEngine(mgr *index.Manager, embedder embed.Embedder, cfg *config.Config) (*search.Engine, func(), error) {
	cleanup := func() {}

	var opts []search.EngineOption
	if cfg.Remote.CacheDir != "" {
		overlayMgr, err := index.Open(cfg.Remote.CacheDir, embedder.Dimensions())
		if err != nil {
			slog.Warn("remote overlay unavailable",
				slog.String("cache_dir", cfg.Remote.CacheDir),
				slog.String("error", err.Error()))
		} else {
			overlay, err := search.NewEngine(overlayMgr.ChunkStore(), overlayMgr.VectorStore(), embedder)
			if err != nil {
				_ = overlayMgr.Close()
			} else {
				opts = append(opts, search.WithRemote(overlay))
				cleanup = func() { _ = overlayMgr.Close() }
			}
		}
	}

	engine, err := search.NewEngine(mgr.ChunkStore(), mgr.VectorStore(), embedder, opts...)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return engine, cleanup, nil
}
