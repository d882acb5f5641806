// Package indexer drives the parse -> embed -> persist pipeline from
// debounced file-system events. A single goroutine consumes the event stream,
// so per-path handling is FIFO and store writes stay serialized behind the
// index Manager.
package indexer

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	kerrors "github.com/kestrelhq/kestrel/internal/errors"
	"github.com/kestrelhq/kestrel/internal/embed"
	"github.com/kestrelhq/kestrel/internal/index"
	"github.com/kestrelhq/kestrel/internal/model"
	"github.com/kestrelhq/kestrel/internal/parser"
	"github.com/kestrelhq/kestrel/internal/search"
	"github.com/kestrelhq/kestrel/internal/watcher"
)

// DefaultMaxFileSize bounds files read into memory (8MB).
const DefaultMaxFileSize int64 = 8 * 1024 * 1024

// Config configures the incremental indexer.
type Config struct {
	// ExcludePatterns are globs for paths that never index.
	ExcludePatterns []string

	// IncludeExtensions limits indexing to these extensions (with or without
	// the leading dot). Empty means all extensions.
	IncludeExtensions []string

	// MaxFileSize is the largest file to index in bytes.
	MaxFileSize int64
}

// Stats counts the indexer's work. Counters only grow.
type Stats struct {
	FilesCreated  int
	FilesModified int
	FilesDeleted  int
	FilesSkipped  int
	ChunksAdded   int
	Errors        int
}

// Indexer applies file events to the index through the Manager. It owns no
// stores itself and mutates only through the Manager.
type Indexer struct {
	manager  *index.Manager
	parser   *parser.Parser
	embedder embed.Embedder
	glob     *search.GlobMatcher
	config   Config

	mu    sync.Mutex
	stats Stats
}

// New creates an incremental indexer.
func New(manager *index.Manager, p *parser.Parser, embedder embed.Embedder, config Config) *Indexer {
	if config.MaxFileSize <= 0 {
		config.MaxFileSize = DefaultMaxFileSize
	}
	return &Indexer{
		manager:  manager,
		parser:   p,
		embedder: embedder,
		glob:     search.NewGlobMatcher(),
		config:   config,
	}
}

// Run consumes debounced event batches until the channel closes or ctx is
// cancelled. Errors in one file never abort the loop.
func (ix *Indexer) Run(ctx context.Context, events <-chan []watcher.FileEvent) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case batch, ok := <-events:
			if !ok {
				return nil
			}
			for _, event := range batch {
				ix.HandleEvent(ctx, event)
			}
		}
	}
}

// HandleEvent applies a single file event.
func (ix *Indexer) HandleEvent(ctx context.Context, event watcher.FileEvent) {
	if ix.skip(event.Path) {
		ix.bump(func(s *Stats) { s.FilesSkipped++ })
		return
	}

	var err error
	switch event.Operation {
	case watcher.OpCreate:
		err = ix.indexFile(ctx, event.Path, false)
	case watcher.OpModify:
		err = ix.indexFile(ctx, event.Path, true)
	case watcher.OpDelete:
		err = ix.deleteFile(ctx, event.Path)
	}

	if err != nil {
		ix.bump(func(s *Stats) { s.Errors++ })
		slog.Warn("file event failed",
			slog.String("path", event.Path),
			slog.String("operation", event.Operation.String()),
			slog.String("error", err.Error()))
	}
}

// IndexFile ingests one file outside the event loop (initial full indexing).
func (ix *Indexer) IndexFile(ctx context.Context, path string) error {
	if ix.skip(path) {
		ix.bump(func(s *Stats) { s.FilesSkipped++ })
		return nil
	}
	return ix.indexFile(ctx, path, false)
}

// indexFile reads, parses, embeds, and persists one file. The modified path
// deletes the file's previous chunks and snippets first; replacement is
// always wholesale.
func (ix *Indexer) indexFile(ctx context.Context, path string, replace bool) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return kerrors.StoreError(kerrors.CodeIO, "read file", err).WithPath(path)
	}
	if int64(len(content)) > ix.config.MaxFileSize {
		slog.Debug("file exceeds size limit, skipping",
			slog.String("path", path),
			slog.Int("size", len(content)))
		ix.bump(func(s *Stats) { s.FilesSkipped++ })
		return nil
	}
	if isBinary(content) {
		ix.bump(func(s *Stats) { s.FilesSkipped++ })
		return nil
	}

	fileHash := model.HashContent(content)
	if !replace && ix.manager.IndexedHash(path) == fileHash {
		// This path is already indexed at this content hash.
		return nil
	}

	result := ix.parser.Parse(ctx, path, content)
	if parseErr := result.Err(); parseErr != nil {
		if parseErr.Code == kerrors.CodeEmptyContent {
			ix.bump(func(s *Stats) { s.FilesSkipped++ })
			return nil
		}
		return parseErr
	}

	chunks := result.Chunks()
	if replace {
		if err := ix.manager.DeleteByPath(ctx, path); err != nil {
			return err
		}
	}
	if len(chunks) == 0 {
		ix.manager.RecordIndexed(fileHash, path)
		return nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := ix.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return err
	}

	items := make([]index.Item, len(chunks))
	for i, c := range chunks {
		items[i] = index.Item{Chunk: c, Vector: vectors[i]}
	}
	if err := ix.manager.IndexBatch(ctx, items); err != nil {
		return err
	}

	if snippets := result.Snippets(); len(snippets) > 0 {
		if err := ix.manager.InsertSnippets(ctx, snippets); err != nil {
			return err
		}
	}

	ix.manager.RecordIndexed(fileHash, path)
	ix.bump(func(s *Stats) {
		if replace {
			s.FilesModified++
		} else {
			s.FilesCreated++
		}
		s.ChunksAdded += len(chunks)
	})
	return nil
}

func (ix *Indexer) deleteFile(ctx context.Context, path string) error {
	if err := ix.manager.DeleteByPath(ctx, path); err != nil {
		return err
	}
	ix.bump(func(s *Stats) { s.FilesDeleted++ })
	return nil
}

// skip applies the event filters: hidden files, exclude patterns, and the
// include-extension list.
func (ix *Indexer) skip(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return true
	}
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if strings.HasPrefix(part, ".") && part != "." && part != ".." {
			return true
		}
	}
	if ix.glob.MatchAny(ix.config.ExcludePatterns, path) {
		return true
	}
	if len(ix.config.IncludeExtensions) > 0 {
		ext := strings.ToLower(filepath.Ext(path))
		for _, want := range ix.config.IncludeExtensions {
			want = strings.ToLower(want)
			if !strings.HasPrefix(want, ".") {
				want = "." + want
			}
			if ext == want {
				return false
			}
		}
		return true
	}
	return false
}

// Stats returns a copy of the current counters.
func (ix *Indexer) Stats() Stats {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.stats
}

func (ix *Indexer) bump(update func(*Stats)) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	update(&ix.stats)
}

// isBinary reports whether content looks binary: a NUL byte in the first 8KB.
func isBinary(content []byte) bool {
	probe := content
	if len(probe) > 8192 {
		probe = probe[:8192]
	}
	for _, b := range probe {
		if b == 0 {
			return true
		}
	}
	return false
}
