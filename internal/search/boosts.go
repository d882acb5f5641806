package search

import (
	"context"
	"regexp"
	"strings"

	"github.com/kestrelhq/kestrel/internal/model"
	"github.com/kestrelhq/kestrel/internal/store"
)

// stopWords are dropped from the query before term boosting: English filler
// plus the syntactic words that name declaration kinds rather than symbols.
var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "is": {}, "are": {}, "was": {}, "were": {},
	"what": {}, "how": {}, "where": {}, "when": {}, "why": {}, "which": {},
	"who": {}, "that": {}, "this": {}, "to": {}, "for": {}, "of": {},
	"in": {}, "on": {}, "at": {}, "by": {}, "with": {}, "from": {},
	"implements": {}, "conforms": {}, "types": {}, "type": {},
	"class": {}, "struct": {}, "actor": {}, "enum": {}, "protocol": {},
	"extension": {},
}

// termSplitPattern splits the query on non-alphanumerics.
var termSplitPattern = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// queryTerms splits the query on non-alphanumerics, drops terms shorter than
// two characters, and removes stop words. Original case is preserved so
// CamelCase identifier terms stay recognizable.
func queryTerms(query string) []string {
	var terms []string
	for _, term := range termSplitPattern.Split(query, -1) {
		if len(term) < 2 {
			continue
		}
		if _, stop := stopWords[strings.ToLower(term)]; stop {
			continue
		}
		terms = append(terms, term)
	}
	return terms
}

// isCamelCaseIdentifier reports whether term looks like a code identifier:
// length >= 3, starts with a letter, no spaces, and mixes upper and lower
// case.
func isCamelCaseIdentifier(term string) bool {
	if len(term) < 3 || strings.ContainsRune(term, ' ') {
		return false
	}
	first := term[0]
	if !(first >= 'a' && first <= 'z' || first >= 'A' && first <= 'Z') {
		return false
	}
	hasUpper, hasLower := false, false
	for _, r := range term {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		}
	}
	return hasUpper && hasLower
}

// conceptualMarkers flag natural-language "how does X work" queries, where
// boilerplate conformance extensions are noise.
var conceptualMarkers = []string{
	"how ", "what ", "where ", "why ", "which ",
	"nearest neighbor", "vector search", "similarity search",
	"semantic search", "k-nearest", "knn", "embedding search",
}

func isConceptualQuery(query string) bool {
	lower := strings.ToLower(query)
	for _, marker := range conceptualMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// standardConformances are compiler-furnished protocols whose extension
// blocks rarely answer a conceptual question.
var standardConformances = map[string]struct{}{
	"Comparable": {}, "Equatable": {}, "Hashable": {}, "Codable": {},
	"Sendable": {}, "CustomStringConvertible": {}, "CustomDebugStringConvertible": {},
	"Encodable": {}, "Decodable": {}, "Identifiable": {}, "CaseIterable": {},
}

// booster applies the metadata ranking boosts of one query to candidate
// chunks. Term frequencies are cached per query so each distinct term costs
// one store lookup.
type booster struct {
	chunks     store.ChunkStore
	config     RankingConfig
	terms      []string
	camelTerms []string
	conceptual bool
	termFreq   map[string]int
}

func newBooster(chunks store.ChunkStore, config RankingConfig, query string) *booster {
	terms := queryTerms(query)
	var camel []string
	for _, term := range terms {
		if isCamelCaseIdentifier(term) {
			camel = append(camel, term)
		}
	}
	return &booster{
		chunks:     chunks,
		config:     config,
		terms:      terms,
		camelTerms: camel,
		conceptual: isConceptualQuery(query),
		termFreq:   make(map[string]int),
	}
}

func (b *booster) frequency(ctx context.Context, term string) int {
	if freq, ok := b.termFreq[term]; ok {
		return freq
	}
	freq, err := b.chunks.TermFrequency(ctx, term)
	if err != nil {
		freq = b.config.RareTermThreshold // unknown frequency disables the boost
	}
	b.termFreq[term] = freq
	return freq
}

// apply multiplies the result's score by every boost whose condition holds,
// in table order, and marks ExactSymbolMatch.
func (b *booster) apply(ctx context.Context, result *Result) {
	chunk := result.Chunk

	// 1. Rare query term declared as a symbol.
	boosted := false
	for _, term := range b.terms {
		if !symbolMatches(chunk.Symbols, term) {
			continue
		}
		if b.frequency(ctx, term) < b.config.RareTermThreshold {
			result.Score *= b.config.ExactSymbolBoost
			result.ExactSymbolMatch = true
			boosted = true
			break
		}
	}

	// 2. Rare CamelCase term in the content without being a symbol.
	if !boosted {
		for _, term := range b.camelTerms {
			if !strings.Contains(chunk.Content, term) {
				continue
			}
			if b.frequency(ctx, term) < b.config.RareTermThreshold {
				result.Score *= b.config.RareContentBoost
				result.ExactSymbolMatch = true
				break
			}
		}
	}

	// 3. Path category.
	switch {
	case strings.Contains(chunk.Path, "/Sources/"):
		result.Score *= b.config.SourcesBoost
	case strings.Contains(chunk.Path, "/Tests/"):
		result.Score *= b.config.TestsFactor
	case strings.Contains(chunk.Path, "/benchmarks/") || strings.Contains(chunk.Path, "/archive/"):
		result.Score *= b.config.ArchiveFactor
	case strings.Contains(chunk.Path, "/docs/") || strings.Contains(chunk.Path, "/openspec/"):
		result.Score *= b.config.DocsFactor
	}

	// 4. Public API surface.
	if strings.HasPrefix(chunk.Signature, "public ") {
		result.Score *= b.config.PublicAPIBoost
	}

	// 5. Standard-protocol extensions are demoted on conceptual queries.
	if b.conceptual && chunk.Kind == model.KindExtension {
		for _, conf := range chunk.Conformances {
			if _, std := standardConformances[conf]; std {
				result.Score *= b.config.StandardExtensionFactor
				break
			}
		}
	}

	// 6. Query names identifiers the chunk does not contain.
	if len(b.camelTerms) > 0 && !b.hasAnyCamelMatch(chunk) {
		result.Score *= b.config.MissingCamelFactor
	}
}

func (b *booster) hasAnyCamelMatch(chunk *model.Chunk) bool {
	for _, term := range b.camelTerms {
		if strings.Contains(chunk.Content, term) {
			return true
		}
		for _, sym := range chunk.Symbols {
			if strings.Contains(sym, term) {
				return true
			}
		}
		for _, ref := range chunk.References {
			if strings.Contains(ref, term) {
				return true
			}
		}
	}
	return false
}

// symbolMatches reports whether term equals a declared symbol or its
// unqualified tail, case-sensitively.
func symbolMatches(symbols []string, term string) bool {
	for _, sym := range symbols {
		if sym == term {
			return true
		}
		if idx := strings.LastIndex(sym, "."); idx >= 0 && sym[idx+1:] == term {
			return true
		}
	}
	return false
}
