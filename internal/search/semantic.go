package search

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/kestrelhq/kestrel/internal/embed"
	"github.com/kestrelhq/kestrel/internal/model"
	"github.com/kestrelhq/kestrel/internal/store"
)

// ScoredID is a semantic search hit after intent-aware re-ranking.
type ScoredID struct {
	ID    string
	Score float64
}

// SemanticSearch embeds the query, asks the vector store for nearest
// neighbors, and applies an intent-aware metadata re-ranking when the query
// shape calls for it.
type SemanticSearch struct {
	vectors  store.VectorStore
	chunks   store.ChunkStore
	embedder embed.Embedder
}

// NewSemanticSearch creates a semantic searcher over non-owning store
// references.
func NewSemanticSearch(vectors store.VectorStore, chunks store.ChunkStore, embedder embed.Embedder) *SemanticSearch {
	return &SemanticSearch{vectors: vectors, chunks: chunks, embedder: embedder}
}

// implementationPhrases flag queries asking who implements/extends a type.
var implementationPhrases = []string{
	"implement", "implements", "implementing",
	"conforms to", "conforming to",
	"inherits", "inheriting", "extends",
	"subclass of", "child of",
}

// targetTypePatterns capture the token naming the type the query asks about.
var targetTypePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)what implements\s+(\S+)`),
	regexp.MustCompile(`(?i)which implements\s+(\S+)`),
	regexp.MustCompile(`(?i)find implementations of\s+(\S+)`),
	regexp.MustCompile(`(?i)classes that implement\s+(\S+)`),
	regexp.MustCompile(`(?i)structs that implement\s+(\S+)`),
	regexp.MustCompile(`(?i)types that implement\s+(\S+)`),
	regexp.MustCompile(`(?i)conforms to\s+(\S+)`),
	regexp.MustCompile(`(?i)inherits from\s+(\S+)`),
}

// pascalCasePattern matches PascalCase tokens in the raw query.
var pascalCasePattern = regexp.MustCompile(`\b[A-Z][a-zA-Z0-9]+\b`)

// kindWords grow the preferred-kind set when the query names a kind.
var kindWords = map[string]model.Kind{
	"protocol": model.KindProtocol, "protocols": model.KindProtocol,
	"class": model.KindClass, "classes": model.KindClass,
	"struct": model.KindStruct, "structs": model.KindStruct,
	"actor": model.KindActor, "actors": model.KindActor,
}

// queryIntent is the analysis of a raw query driving the re-ranking.
type queryIntent struct {
	asksAboutImplementation bool
	targetTypes             []string
	mentionsProtocol        bool
	preferredKinds          map[model.Kind]struct{}
	needsReranking          bool
}

// analyzeIntent inspects the raw query text for implementation questions,
// target type names, and preferred declaration kinds.
func analyzeIntent(query string) queryIntent {
	lower := strings.ToLower(query)
	intent := queryIntent{preferredKinds: make(map[model.Kind]struct{})}

	for _, phrase := range implementationPhrases {
		if strings.Contains(lower, phrase) {
			intent.asksAboutImplementation = true
			break
		}
	}

	seen := make(map[string]struct{})
	addTarget := func(name string) {
		name = strings.Trim(name, `"'.,?!`)
		if name == "" {
			return
		}
		name = strings.ToUpper(name[:1]) + name[1:]
		if _, dup := seen[name]; !dup {
			seen[name] = struct{}{}
			intent.targetTypes = append(intent.targetTypes, name)
		}
	}
	for _, pattern := range targetTypePatterns {
		if match := pattern.FindStringSubmatch(query); match != nil {
			addTarget(match[1])
		}
	}
	for _, token := range pascalCasePattern.FindAllString(query, -1) {
		addTarget(token)
	}

	intent.mentionsProtocol = strings.Contains(lower, "protocol")

	for word, kind := range kindWords {
		if containsWord(lower, word) {
			intent.preferredKinds[kind] = struct{}{}
		}
	}

	intent.needsReranking = intent.asksAboutImplementation ||
		len(intent.targetTypes) > 0 ||
		intent.mentionsProtocol ||
		len(intent.preferredKinds) > 0
	return intent
}

func containsWord(text, word string) bool {
	idx := strings.Index(text, word)
	for idx >= 0 {
		before := idx == 0 || !isWordByte(text[idx-1])
		afterIdx := idx + len(word)
		after := afterIdx >= len(text) || !isWordByte(text[afterIdx])
		if before && after {
			return true
		}
		next := strings.Index(text[idx+1:], word)
		if next < 0 {
			return false
		}
		idx += 1 + next
	}
	return false
}

func isWordByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_'
}

// SearchRaw embeds the query, over-fetches 2x the limit from the vector
// store, re-ranks candidates by intent when needed, and returns the top-limit
// ids with their adjusted similarities. Provider errors propagate.
func (s *SemanticSearch) SearchRaw(ctx context.Context, query string, limit int) ([]ScoredID, error) {
	if limit <= 0 {
		return []ScoredID{}, nil
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	candidates, err := s.vectors.Search(ctx, vector, limit*2)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return []ScoredID{}, nil
	}

	intent := analyzeIntent(query)
	if !intent.needsReranking {
		if len(candidates) > limit {
			candidates = candidates[:limit]
		}
		results := make([]ScoredID, len(candidates))
		for i, c := range candidates {
			results[i] = ScoredID{ID: c.ID, Score: float64(c.Similarity)}
		}
		return results, nil
	}

	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ID
	}
	chunks, err := s.chunks.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*model.Chunk, len(chunks))
	for _, c := range chunks {
		byID[c.ID] = c
	}

	results := make([]ScoredID, 0, len(candidates))
	for _, c := range candidates {
		score := float64(c.Similarity)
		if chunk, ok := byID[c.ID]; ok {
			score *= intentBoost(chunk, intent)
		}
		results = append(results, ScoredID{ID: c.ID, Score: score})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// intentBoost computes the multiplicative re-ranking factor for one
// candidate.
func intentBoost(chunk *model.Chunk, intent queryIntent) float64 {
	boost := 1.0

	for _, target := range intent.targetTypes {
		matched := false
		for _, conf := range chunk.Conformances {
			if strings.Contains(strings.ToLower(conf), strings.ToLower(target)) {
				boost *= 1.5
				matched = true
				break
			}
		}
		if matched {
			continue
		}
		for _, sym := range chunk.Symbols {
			if strings.Contains(sym, target) {
				boost *= 1.2
				break
			}
		}
	}

	if _, preferred := intent.preferredKinds[chunk.Kind]; preferred {
		boost *= 1.3
	}
	if intent.mentionsProtocol && chunk.Kind == model.KindProtocol {
		boost *= 1.3
	}
	if intent.asksAboutImplementation && chunk.Kind != model.KindProtocol && len(chunk.Conformances) > 0 {
		boost *= 1.2
	}

	return boost
}
