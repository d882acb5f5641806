package search

import (
	"context"

	"github.com/kestrelhq/kestrel/internal/store"
)

// SnippetSearch is the documentation snippet facade: pure BM25 over the
// snippet store with a glob filter, independent of the main ranker.
type SnippetSearch struct {
	snippets store.SnippetStore
	glob     *GlobMatcher
}

// NewSnippetSearch creates the facade over a non-owning store reference.
func NewSnippetSearch(snippets store.SnippetStore) *SnippetSearch {
	return &SnippetSearch{snippets: snippets, glob: NewGlobMatcher()}
}

// SearchInfoSnippets returns the top-limit snippets for the query, filtered
// by the optional path glob.
func (s *SnippetSearch) SearchInfoSnippets(ctx context.Context, query string, limit int, pathFilter string) ([]store.SnippetResult, error) {
	if limit <= 0 {
		return []store.SnippetResult{}, nil
	}

	// Over-fetch when filtering so the glob does not starve the result set.
	fetchLimit := limit
	if pathFilter != "" {
		fetchLimit = limit * 3
	}

	hits, err := s.snippets.SearchFTS(ctx, query, fetchLimit)
	if err != nil {
		return nil, err
	}

	results := make([]store.SnippetResult, 0, limit)
	for _, hit := range hits {
		if pathFilter != "" && !s.glob.Match(pathFilter, hit.Snippet.Path) {
			continue
		}
		results = append(results, hit)
		if len(results) == limit {
			break
		}
	}
	return results, nil
}
