package embed

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// StaticDimensions is the embedding dimension of the static provider.
const StaticDimensions = 256

// StaticEmbedder is a deterministic, offline embedding provider: token
// hashes are bucketed into a fixed-width vector which is then normalized.
// Retrieval quality is far below a learned model, but the engine stays
// functional with no network and tests get reproducible vectors.
type StaticEmbedder struct {
	dims int
}

var _ Embedder = (*StaticEmbedder)(nil)

// NewStaticEmbedder creates a static embedder with the default dimension.
func NewStaticEmbedder() *StaticEmbedder {
	return &StaticEmbedder{dims: StaticDimensions}
}

// Embed produces a deterministic bag-of-tokens vector.
func (e *StaticEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dims)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(token))
		bucket := int(h.Sum32()) % e.dims
		if bucket < 0 {
			bucket += e.dims
		}
		vec[bucket]++
	}

	var sumSquares float64
	for _, v := range vec {
		sumSquares += float64(v) * float64(v)
	}
	if sumSquares > 0 {
		inv := float32(1.0 / math.Sqrt(sumSquares))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec, nil
}

// EmbedBatch embeds each text in turn.
func (e *StaticEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, e, texts)
}

// Dimensions returns the embedding dimension.
func (e *StaticEmbedder) Dimensions() int { return e.dims }

// ID returns the provider identifier.
func (e *StaticEmbedder) ID() string { return "static" }

// Name returns the provider name.
func (e *StaticEmbedder) Name() string { return "Static hash embedder" }

// Available always reports true: the static embedder has no dependencies.
func (e *StaticEmbedder) Available(ctx context.Context) bool { return true }

// Close is a no-op.
func (e *StaticEmbedder) Close() error { return nil }
