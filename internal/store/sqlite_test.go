package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelhq/kestrel/internal/model"
)

func newTestChunkStore(t *testing.T) *SQLiteChunkStore {
	t.Helper()
	s, err := NewSQLiteChunkStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testChunk(id, path, content string, kind model.Kind, symbols ...string) *model.Chunk {
	return &model.Chunk{
		ID:        id,
		Path:      path,
		Content:   content,
		StartLine: 1,
		EndLine:   1 + len(content)/40,
		Kind:      kind,
		Symbols:   symbols,
		FileHash:  "aaaaaaaaaaaaaaaa",
		Language:  "swift",
	}
}

func TestChunkStoreGetAbsent(t *testing.T) {
	s := newTestChunkStore(t)

	chunk, err := s.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, chunk)
}

func TestChunkStoreUpsertRoundTrip(t *testing.T) {
	s := newTestChunkStore(t)
	ctx := context.Background()

	chunk := testChunk("c1", "Sources/A.swift", "func fetchUser() {}", model.KindFunction, "fetchUser")
	chunk.References = []string{"UserStore"}
	chunk.Conformances = []string{"Fetchable"}
	chunk.DocComment = "Fetches the user."
	chunk.Signature = "public func fetchUser()"
	chunk.Breadcrumb = "A > fetchUser"

	require.NoError(t, s.Upsert(ctx, chunk))

	got, err := s.Get(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, chunk.Path, got.Path)
	assert.Equal(t, chunk.Content, got.Content)
	assert.Equal(t, chunk.Kind, got.Kind)
	assert.Equal(t, chunk.Symbols, got.Symbols)
	assert.Equal(t, chunk.References, got.References)
	assert.Equal(t, chunk.Conformances, got.Conformances)
	assert.Equal(t, chunk.DocComment, got.DocComment)
	assert.Equal(t, chunk.Signature, got.Signature)
	assert.Equal(t, chunk.Breadcrumb, got.Breadcrumb)
}

func TestChunkStoreUpsertIdempotent(t *testing.T) {
	s := newTestChunkStore(t)
	ctx := context.Background()

	chunk := testChunk("c1", "a.swift", "func a() {}", model.KindFunction, "a")
	require.NoError(t, s.Upsert(ctx, chunk))
	require.NoError(t, s.Upsert(ctx, chunk))

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestChunkStoreGetByIDsFoldsDuplicates(t *testing.T) {
	s := newTestChunkStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, testChunk("c1", "a.swift", "func a() {}", model.KindFunction, "a")))
	require.NoError(t, s.Upsert(ctx, testChunk("c2", "b.swift", "func b() {}", model.KindFunction, "b")))

	chunks, err := s.GetByIDs(ctx, []string{"c1", "c1", "c2", "absent"})
	require.NoError(t, err)
	assert.Len(t, chunks, 2)
}

func TestChunkStoreDeleteByPath(t *testing.T) {
	s := newTestChunkStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, testChunk("c1", "a.swift", "func a() {}", model.KindFunction, "a")))
	require.NoError(t, s.Upsert(ctx, testChunk("c2", "a.swift", "func b() {}", model.KindFunction, "b")))
	require.NoError(t, s.Upsert(ctx, testChunk("c3", "keep.swift", "func keep() {}", model.KindFunction, "keep")))

	require.NoError(t, s.DeleteByPath(ctx, "a.swift"))

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// FTS rows are gone too: the deleted symbols no longer match.
	results, err := s.SearchFTS(ctx, "func", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "c3", results[0].ID)
}

func TestChunkStoreSearchFTSOrdering(t *testing.T) {
	s := newTestChunkStore(t)
	ctx := context.Background()

	// c1 mentions the term twice, c2 once within more text.
	require.NoError(t, s.Upsert(ctx, testChunk("c1", "a.swift",
		"func resolveWidget() { resolveWidget() }", model.KindFunction, "resolveWidget")))
	require.NoError(t, s.Upsert(ctx, testChunk("c2", "b.swift",
		"func other() { let w = resolveWidget(); print(w); return }", model.KindFunction, "other")))

	results, err := s.SearchFTS(ctx, "resolveWidget", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "c1", results[0].ID)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestChunkStoreSearchFTSDeterministic(t *testing.T) {
	s := newTestChunkStore(t)
	ctx := context.Background()

	for _, id := range []string{"c1", "c2", "c3"} {
		require.NoError(t, s.Upsert(ctx, testChunk(id, id+".swift", "func shared() {}", model.KindFunction, "shared")))
	}

	first, err := s.SearchFTS(ctx, "shared", 10)
	require.NoError(t, err)
	second, err := s.SearchFTS(ctx, "shared", 10)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestChunkStoreSearchFTSPunctuationSafe(t *testing.T) {
	s := newTestChunkStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, testChunk("c1", "a.swift", "func a() {}", model.KindFunction, "a")))

	for _, query := range []string{`"unbalanced`, "NOT", "a AND", "(((", "*"} {
		results, err := s.SearchFTS(ctx, query, 10)
		require.NoError(t, err, "query %q must not error", query)
		_ = results
	}
}

func TestChunkStoreTermFrequency(t *testing.T) {
	s := newTestChunkStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, testChunk("c1", "a.swift",
		"struct USearchError {}", model.KindStruct, "USearchError")))
	require.NoError(t, s.Upsert(ctx, testChunk("c2", "b.swift",
		"func throwIt() -> USearchError { }", model.KindFunction, "throwIt")))
	require.NoError(t, s.Upsert(ctx, testChunk("c3", "c.swift",
		"func unrelated() {}", model.KindFunction, "unrelated")))

	freq, err := s.TermFrequency(ctx, "USearchError")
	require.NoError(t, err)
	assert.Equal(t, 2, freq)

	freq, err = s.TermFrequency(ctx, "nonexistent")
	require.NoError(t, err)
	assert.Equal(t, 0, freq)
}

func TestChunkStoreFindConformingTypes(t *testing.T) {
	s := newTestChunkStore(t)
	ctx := context.Background()

	ext := testChunk("e1", "Sources/Ext.swift", "extension Thing: Fetchable {}", model.KindExtension, "Thing")
	ext.Conformances = []string{"Fetchable"}
	cls := testChunk("k1", "Sources/Z.swift", "class ZStore: Fetchable {}", model.KindClass, "ZStore")
	cls.Conformances = []string{"Fetchable"}
	cls2 := testChunk("k2", "Sources/A.swift", "class AStore: Fetchable {}", model.KindClass, "AStore")
	cls2.Conformances = []string{"Fetchable"}
	other := testChunk("k3", "Sources/B.swift", "class B: Codable {}", model.KindClass, "B")
	other.Conformances = []string{"Codable"}

	for _, c := range []*model.Chunk{ext, cls, cls2, other} {
		require.NoError(t, s.Upsert(ctx, c))
	}

	results, err := s.FindConformingTypes(ctx, "Fetchable", 10)
	require.NoError(t, err)
	require.Len(t, results, 3)

	// Concrete types before extensions, path-lexicographic within the band.
	assert.Equal(t, "k2", results[0].ID)
	assert.Equal(t, "k1", results[1].ID)
	assert.Equal(t, "e1", results[2].ID)
}

func TestChunkStoreGetByPath(t *testing.T) {
	s := newTestChunkStore(t)
	ctx := context.Background()

	second := testChunk("c2", "a.swift", "func b() {}", model.KindFunction, "b")
	second.StartLine, second.EndLine = 10, 12
	require.NoError(t, s.Upsert(ctx, second))
	require.NoError(t, s.Upsert(ctx, testChunk("c1", "a.swift", "func a() {}", model.KindFunction, "a")))

	chunks, err := s.GetByPath(ctx, "a.swift")
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "c1", chunks[0].ID)
	assert.Equal(t, "c2", chunks[1].ID)
}

func TestChunkStorePersistence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chunks.db")
	ctx := context.Background()

	s, err := NewSQLiteChunkStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Upsert(ctx, testChunk("c1", "a.swift", "func a() {}", model.KindFunction, "a")))
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteChunkStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "a.swift", got.Path)
}
