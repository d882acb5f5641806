package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kerrors "github.com/kestrelhq/kestrel/internal/errors"
)

func newTestVectorStore(t *testing.T, dims int) *HNSWStore {
	t.Helper()
	s, err := NewHNSWStore(DefaultHNSWConfig(dims))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestHNSWAddSearch(t *testing.T) {
	s := newTestVectorStore(t, 3)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, "a", []float32{1, 0, 0}))
	require.NoError(t, s.Add(ctx, "b", []float32{0, 1, 0}))
	require.NoError(t, s.Add(ctx, "c", []float32{0.9, 0.1, 0}))

	results, err := s.Search(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "a", results[0].ID)
	assert.Equal(t, "c", results[1].ID)
	assert.InDelta(t, 1.0, float64(results[0].Similarity), 1e-5)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Similarity, results[i].Similarity)
	}
}

func TestHNSWDimensionMismatch(t *testing.T) {
	s := newTestVectorStore(t, 3)
	ctx := context.Background()

	err := s.Add(ctx, "a", []float32{1, 0})
	require.Error(t, err)
	assert.True(t, kerrors.IsKind(err, kerrors.KindStore))

	_, err = s.Search(ctx, []float32{1, 0}, 1)
	require.Error(t, err)
}

func TestHNSWReplaceByID(t *testing.T) {
	s := newTestVectorStore(t, 3)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, "a", []float32{1, 0, 0}))
	require.NoError(t, s.Add(ctx, "a", []float32{0, 1, 0}))

	assert.Equal(t, 1, s.Count())

	results, err := s.Search(ctx, []float32{0, 1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ID)
	assert.InDelta(t, 1.0, float64(results[0].Similarity), 1e-5)
}

func TestHNSWDeleteContains(t *testing.T) {
	s := newTestVectorStore(t, 3)
	ctx := context.Background()

	require.NoError(t, s.AddBatch(ctx, []string{"a", "b"}, [][]float32{{1, 0, 0}, {0, 1, 0}}))
	assert.True(t, s.Contains("a"))
	assert.Equal(t, 2, s.Count())

	require.NoError(t, s.Delete(ctx, []string{"a", "missing"}))
	assert.False(t, s.Contains("a"))
	assert.Equal(t, 1, s.Count())

	// Deleted vectors never surface in results.
	results, err := s.Search(ctx, []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, "a", r.ID)
	}
}

func TestHNSWSaveLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vectors.hnsw")
	ctx := context.Background()

	s := newTestVectorStore(t, 4)
	require.NoError(t, s.AddBatch(ctx,
		[]string{"a", "b"},
		[][]float32{{1, 0, 0, 0}, {0, 1, 0, 0}}))
	require.NoError(t, s.Save(path))

	loaded, err := NewHNSWStore(DefaultHNSWConfig(4))
	require.NoError(t, err)
	defer loaded.Close()
	require.NoError(t, loaded.Load(path))

	assert.Equal(t, 2, loaded.Count())
	assert.True(t, loaded.Contains("a"))

	results, err := loaded.Search(ctx, []float32{1, 0, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ID)
}

func TestHNSWClear(t *testing.T) {
	s := newTestVectorStore(t, 3)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, "a", []float32{1, 0, 0}))
	s.Clear()

	assert.Equal(t, 0, s.Count())
	results, err := s.Search(ctx, []float32{1, 0, 0}, 1)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestHNSWEmptySearch(t *testing.T) {
	s := newTestVectorStore(t, 3)

	results, err := s.Search(context.Background(), []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}
