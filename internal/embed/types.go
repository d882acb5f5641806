// Package embed defines the embedding provider contract and its
// implementations: an Ollama-backed HTTP provider and a deterministic static
// fallback. Providers compose into a chain that tries each in order.
package embed

import (
	"context"
	"time"
)

// Default request parameters.
const (
	DefaultBatchSize = 32
	DefaultTimeout   = 60 * time.Second
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates the embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts. The default
	// behavior is a per-text loop; providers with a batch API override it.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimension.
	Dimensions() int

	// ID returns the stable provider identifier.
	ID() string

	// Name returns the human-readable provider name.
	Name() string

	// Available reports whether the provider is ready to serve.
	Available(ctx context.Context) bool

	// Close releases resources.
	Close() error
}

// embedEach is the default per-text loop used by providers without a native
// batch endpoint.
func embedEach(ctx context.Context, e Embedder, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for _, text := range texts {
		v, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, v)
	}
	return vectors, nil
}
