package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelhq/kestrel/internal/model"
	"github.com/kestrelhq/kestrel/internal/store"
)

func newTestSnippetSearch(t *testing.T, snippets ...*model.Snippet) *SnippetSearch {
	t.Helper()
	s, err := store.NewBleveSnippetStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Insert(context.Background(), snippets))
	return NewSnippetSearch(s)
}

func docSnippet(id, path, content string) *model.Snippet {
	return &model.Snippet{
		ID:        id,
		Path:      path,
		Content:   content,
		StartLine: 1,
		EndLine:   2,
		Language:  "markdown",
		Kind:      model.SnippetMarkdownSection,
		FileHash:  "4444444444444444",
	}
}

func TestSnippetSearchBasic(t *testing.T) {
	s := newTestSnippetSearch(t,
		docSnippet("s1", "docs/ranking.md", "How rank fusion combines lexical and semantic scores"),
		docSnippet("s2", "docs/install.md", "Installation instructions for the binary"),
	)

	results, err := s.SearchInfoSnippets(context.Background(), "rank fusion scores", 5, "")
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "s1", results[0].Snippet.ID)
}

func TestSnippetSearchPathFilter(t *testing.T) {
	s := newTestSnippetSearch(t,
		docSnippet("s1", "docs/guide.md", "shared topic content"),
		docSnippet("s2", "notes/scratch.md", "shared topic content"),
	)

	results, err := s.SearchInfoSnippets(context.Background(), "shared topic", 5, "docs/**")
	require.NoError(t, err)
	require.NotEmpty(t, results)
	for _, r := range results {
		assert.Equal(t, "docs/guide.md", r.Snippet.Path)
	}
}

func TestSnippetSearchLimit(t *testing.T) {
	var snippets []*model.Snippet
	for i := 0; i < 10; i++ {
		snippets = append(snippets, docSnippet(
			model.SnippetID("docs/a.md", "common", i+1),
			"docs/a.md", "common topic paragraph"))
	}
	s := newTestSnippetSearch(t, snippets...)

	results, err := s.SearchInfoSnippets(context.Background(), "common topic", 3, "")
	require.NoError(t, err)
	assert.Len(t, results, 3)
}
