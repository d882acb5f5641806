package search

import (
	"context"

	"github.com/kestrelhq/kestrel/internal/store"
)

// BM25Search is the thin lexical adapter over the chunk store's full-text
// index. Higher scores come first; no further transformation is applied.
type BM25Search struct {
	chunks store.ChunkStore
}

// NewBM25Search creates the adapter.
func NewBM25Search(chunks store.ChunkStore) *BM25Search {
	return &BM25Search{chunks: chunks}
}

// SearchRaw returns the top-limit (id, score) pairs for the query.
func (s *BM25Search) SearchRaw(ctx context.Context, query string, limit int) ([]store.FTSResult, error) {
	return s.chunks.SearchFTS(ctx, query, limit)
}
