// Package search implements hybrid retrieval: BM25 and semantic searches are
// fused with weighted Reciprocal Rank Fusion, re-ranked by metadata boosts,
// optionally expanded through multi-hop reference probes, and merged with a
// remote overlay index.
package search

import (
	"github.com/kestrelhq/kestrel/internal/model"
)

// DefaultRRFK is the standard RRF smoothing parameter; k=60 is empirically
// validated across domains.
const DefaultRRFK = 60

// Options configures a search query.
type Options struct {
	// Limit is the maximum number of results to return (default: 10).
	Limit int

	// SemanticWeight is the semantic share of fusion in [0, 1]; the BM25
	// weight is 1 - SemanticWeight (default: 0.65).
	SemanticWeight float64

	// PathFilter restricts results to paths matching this glob.
	PathFilter string

	// ExtensionFilter restricts results to these file extensions (with or
	// without the leading dot). Conjunctive with PathFilter.
	ExtensionFilter []string

	// RRFK is the RRF smoothing constant (default: 60).
	RRFK int

	// MultiHop enables reference expansion of the top results.
	MultiHop bool

	// MultiHopDepth bounds the expansion recursion (default: 0).
	MultiHopDepth int
}

// DefaultOptions returns the default search options.
func DefaultOptions() Options {
	return Options{
		Limit:          10,
		SemanticWeight: 0.65,
		RRFK:           DefaultRRFK,
	}
}

// withDefaults fills zero values and clamps out-of-range weights.
func (o Options) withDefaults() Options {
	if o.Limit <= 0 {
		o.Limit = 10
	}
	if o.SemanticWeight < 0 {
		o.SemanticWeight = 0
	}
	if o.SemanticWeight > 1 {
		o.SemanticWeight = 1
	}
	if o.RRFK < 1 {
		o.RRFK = DefaultRRFK
	}
	if o.MultiHopDepth < 0 {
		o.MultiHopDepth = 0
	}
	return o
}

// Result is a single ranked search hit.
type Result struct {
	Chunk *model.Chunk

	// Score is the final score after fusion and metadata boosts. Results are
	// sorted by Score descending.
	Score float64

	// BM25Score is the raw BM25 score (0 when absent from the BM25 list).
	BM25Score float64

	// SemanticScore is the adjusted cosine similarity (0 when absent).
	SemanticScore float64

	// BM25Rank is the 1-based position in the BM25 list (0 when absent).
	BM25Rank int

	// SemanticRank is the 1-based position in the semantic list (0 when absent).
	SemanticRank int

	// IsMultiHop marks results found through reference expansion.
	IsMultiHop bool

	// HopDepth is the expansion depth (0 for direct hits).
	HopDepth int

	// ExactSymbolMatch marks results boosted by a rare exact term match.
	ExactSymbolMatch bool
}

// RankingConfig holds the metadata boost constants. The engine multiplies
// fusion scores by these factors; all defaults keep scores non-negative.
type RankingConfig struct {
	// ExactSymbolBoost applies when a rare query term is one of the chunk's
	// symbols.
	ExactSymbolBoost float64

	// RareContentBoost applies when a rare CamelCase query term appears in
	// the chunk content without being a symbol.
	RareContentBoost float64

	// RareTermThreshold is the corpus frequency below which a term counts as
	// rare.
	RareTermThreshold int

	// Path category factors.
	SourcesBoost   float64
	TestsFactor    float64
	ArchiveFactor  float64
	DocsFactor     float64

	// PublicAPIBoost applies to chunks whose signature starts with "public ".
	PublicAPIBoost float64

	// StandardExtensionFactor demotes standard-protocol extensions on
	// conceptual queries.
	StandardExtensionFactor float64

	// MissingCamelFactor demotes chunks with no exact CamelCase match when
	// the query names identifiers.
	MissingCamelFactor float64

	// MultiHopDecay scales hop scores per depth.
	MultiHopDecay float64

	// ConformanceWeight is the fusion weight of the conformance track.
	ConformanceWeight float64
}

// DefaultRankingConfig returns the tuned boost constants.
func DefaultRankingConfig() RankingConfig {
	return RankingConfig{
		ExactSymbolBoost:        2.5,
		RareContentBoost:        2.0,
		RareTermThreshold:       10,
		SourcesBoost:            1.25,
		TestsFactor:             0.8,
		ArchiveFactor:           0.5,
		DocsFactor:              0.9,
		PublicAPIBoost:          1.1,
		StandardExtensionFactor: 0.5,
		MissingCamelFactor:      0.3,
		MultiHopDecay:           0.7,
		ConformanceWeight:       3.0,
	}
}
