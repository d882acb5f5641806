package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelhq/kestrel/internal/model"
)

func newTestSnippetStore(t *testing.T) *BleveSnippetStore {
	t.Helper()
	s, err := NewBleveSnippetStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testSnippet(id, path, content, breadcrumb string) *model.Snippet {
	return &model.Snippet{
		ID:         id,
		Path:       path,
		Content:    content,
		StartLine:  1,
		EndLine:    3,
		Breadcrumb: breadcrumb,
		Language:   "markdown",
		Kind:       model.SnippetMarkdownSection,
		FileHash:   "bbbbbbbbbbbbbbbb",
	}
}

func TestSnippetStoreInsertSearch(t *testing.T) {
	s := newTestSnippetStore(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, []*model.Snippet{
		testSnippet("s1", "docs/guide.md", "How to configure the vector index", "Guide > Configuration"),
		testSnippet("s2", "docs/other.md", "Unrelated release notes", "Notes"),
	}))

	results, err := s.SearchFTS(ctx, "configure vector index", 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "s1", results[0].Snippet.ID)
	assert.Equal(t, "docs/guide.md", results[0].Snippet.Path)
	assert.Equal(t, "Guide > Configuration", results[0].Snippet.Breadcrumb)
	assert.Equal(t, 1, results[0].Snippet.StartLine)
	assert.Greater(t, results[0].Score, 0.0)
}

func TestSnippetStoreDeleteByPath(t *testing.T) {
	s := newTestSnippetStore(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, []*model.Snippet{
		testSnippet("s1", "docs/a.md", "alpha section", "A"),
		testSnippet("s2", "docs/a.md", "beta section", "B"),
		testSnippet("s3", "docs/b.md", "gamma section", "C"),
	}))

	require.NoError(t, s.DeleteByPath(ctx, "docs/a.md"))

	count, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSnippetStoreEmptyQuery(t *testing.T) {
	s := newTestSnippetStore(t)

	results, err := s.SearchFTS(context.Background(), "", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}
