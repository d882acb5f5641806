// Package store provides the persistence layer: the chunk store with its
// full-text inverted index (SQLite FTS5), the HNSW vector store, and the
// snippet store (Bleve).
package store

import (
	"context"

	"github.com/kestrelhq/kestrel/internal/model"
)

// FTSResult is a single full-text search hit. Higher scores are better.
type FTSResult struct {
	ID    string
	Score float64
}

// VectorResult is a single ANN search hit. Similarity is cosine similarity,
// in [-1, 1] and typically [0, 1] for normalized vectors.
type VectorResult struct {
	ID         string
	Similarity float32
}

// ChunkStore persists chunks keyed by stable id and owns a full-text inverted
// index over chunk content and symbols.
type ChunkStore interface {
	// Get returns the chunk with the given id, or nil if absent.
	Get(ctx context.Context, id string) (*model.Chunk, error)

	// GetByIDs batch-fetches chunks. Duplicate ids are folded to a single row;
	// fewer chunks than ids may be returned. No ordering guarantee.
	GetByIDs(ctx context.Context, ids []string) ([]*model.Chunk, error)

	// Insert adds a chunk. Idempotent by id.
	Insert(ctx context.Context, chunk *model.Chunk) error

	// Upsert inserts or replaces a chunk by id.
	Upsert(ctx context.Context, chunk *model.Chunk) error

	// GetByPath returns every chunk whose Path equals path, ordered by
	// start line.
	GetByPath(ctx context.Context, path string) ([]*model.Chunk, error)

	// DeleteByPath removes every chunk whose Path equals path.
	DeleteByPath(ctx context.Context, path string) error

	// SearchFTS returns the top-limit chunks for the query scored by BM25,
	// ordered by score descending with deterministic ties. Query-syntax
	// errors from the FTS layer yield an empty result, never an error.
	SearchFTS(ctx context.Context, query string, limit int) ([]FTSResult, error)

	// TermFrequency returns the number of distinct chunks whose content or
	// symbols contain term exactly.
	TermFrequency(ctx context.Context, term string) (int, error)

	// Count returns the number of chunks in the store.
	Count(ctx context.Context) (int, error)

	// Close releases resources.
	Close() error
}

// ConformanceIndex is an optional ChunkStore capability: reverse lookup from a
// protocol or superclass name to the chunks declaring it. Engines check for
// this interface and skip the conformance track when absent.
type ConformanceIndex interface {
	// FindConformingTypes returns chunks with protocolName among their
	// conformances, ordered by kind priority (class/struct/actor/enum before
	// extension) then path lexicographically.
	FindConformingTypes(ctx context.Context, protocolName string, limit int) ([]*model.Chunk, error)
}

// VectorStore is a cosine-similarity top-k ANN index over chunk embeddings.
// The store has a fixed dimension; mismatched inputs fail.
type VectorStore interface {
	// Add inserts a vector under id, replacing any existing entry.
	Add(ctx context.Context, id string, vector []float32) error

	// AddBatch inserts many vectors. ids and vectors must have equal length.
	AddBatch(ctx context.Context, ids []string, vectors [][]float32) error

	// Search returns the top-limit nearest neighbors by cosine similarity,
	// sorted descending.
	Search(ctx context.Context, vector []float32, limit int) ([]VectorResult, error)

	// Delete removes vectors by id. Unknown ids are ignored.
	Delete(ctx context.Context, ids []string) error

	// Contains reports whether id has a vector.
	Contains(id string) bool

	// Count returns the number of vectors.
	Count() int

	// Dimensions returns the fixed vector dimension.
	Dimensions() int

	// Save persists the index to path.
	Save(path string) error

	// Load restores the index from path.
	Load(path string) error

	// Clear removes all vectors.
	Clear()

	// Close releases resources.
	Close() error
}

// SnippetResult is a single snippet search hit.
type SnippetResult struct {
	Snippet *model.Snippet
	Score   float64
}

// SnippetStore persists documentation snippets with full-text search.
// Its FTS contract mirrors ChunkStore.SearchFTS.
type SnippetStore interface {
	// Insert adds snippets to the store.
	Insert(ctx context.Context, snippets []*model.Snippet) error

	// DeleteByPath removes every snippet whose Path equals path.
	DeleteByPath(ctx context.Context, path string) error

	// SearchFTS returns the top-limit snippets for the query scored by BM25.
	SearchFTS(ctx context.Context, query string, limit int) ([]SnippetResult, error)

	// Count returns the number of snippets.
	Count() (int, error)

	// Close releases resources.
	Close() error
}
