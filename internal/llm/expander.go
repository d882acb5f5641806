package llm

import (
	"context"
	"encoding/json"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// expansionCacheSize bounds the per-process expansion cache.
const expansionCacheSize = 512

// ExpandedQuery is the result of LLM query expansion.
type ExpandedQuery struct {
	Original      string   `json:"original"`
	Synonyms      []string `json:"synonyms"`
	Concepts      []string `json:"concepts"`
	Variations    []string `json:"variations"`
	AllTerms      []string `json:"all_terms"`
	CombinedQuery string   `json:"combined_query"`
}

// Expander widens a query with synonyms and related concepts through the LLM
// chain. Results are cached by exact query string. Callers fall back to the
// unexpanded query on any error.
type Expander struct {
	provider Provider
	cache    *lru.Cache[string, *ExpandedQuery]
}

// NewExpander creates an expander over the given provider (usually a Chain).
func NewExpander(provider Provider) *Expander {
	cache, _ := lru.New[string, *ExpandedQuery](expansionCacheSize)
	return &Expander{provider: provider, cache: cache}
}

const expandSystemPrompt = `You expand code search queries. Respond with JSON only:
{"synonyms": [...], "concepts": [...], "variations": [...]}
Synonyms are alternative identifiers a codebase might use, concepts are related
technical terms, variations are rephrasings of the query. Three items each,
no prose.`

// Expand returns the expansion for query, from cache when available.
func (e *Expander) Expand(ctx context.Context, query string) (*ExpandedQuery, error) {
	if cached, ok := e.cache.Get(query); ok {
		return cached, nil
	}

	raw, err := e.provider.Complete(ctx, []Message{
		{Role: "system", Content: expandSystemPrompt},
		{Role: "user", Content: query},
	}, "", ExpandTimeout)
	if err != nil {
		return nil, err
	}

	expanded, err := parseExpansion(query, raw)
	if err != nil {
		return nil, err
	}
	e.cache.Add(query, expanded)
	return expanded, nil
}

// parseExpansion decodes the model's JSON, tolerating fenced output, and
// assembles the combined query.
func parseExpansion(query, raw string) (*ExpandedQuery, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var decoded struct {
		Synonyms   []string `json:"synonyms"`
		Concepts   []string `json:"concepts"`
		Variations []string `json:"variations"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &decoded); err != nil {
		return nil, err
	}

	expanded := &ExpandedQuery{
		Original:   query,
		Synonyms:   decoded.Synonyms,
		Concepts:   decoded.Concepts,
		Variations: decoded.Variations,
	}

	seen := map[string]struct{}{}
	add := func(term string) {
		term = strings.TrimSpace(term)
		if term == "" {
			return
		}
		key := strings.ToLower(term)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		expanded.AllTerms = append(expanded.AllTerms, term)
	}
	for _, word := range strings.Fields(query) {
		add(word)
	}
	for _, term := range decoded.Synonyms {
		add(term)
	}
	for _, term := range decoded.Concepts {
		add(term)
	}

	expanded.CombinedQuery = strings.Join(expanded.AllTerms, " ")
	return expanded, nil
}
