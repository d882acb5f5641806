package search

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	kerrors "github.com/kestrelhq/kestrel/internal/errors"
	"github.com/kestrelhq/kestrel/internal/embed"
	"github.com/kestrelhq/kestrel/internal/model"
	"github.com/kestrelhq/kestrel/internal/store"
)

// Engine is the hybrid search core. A query runs through a conformance
// probe, parallel lexical and semantic searches, weighted RRF fusion,
// glob/extension filtering, metadata ranking boosts, optional multi-hop
// reference expansion, and an optional remote overlay merge.
//
// The engine holds non-owning store references, never mutates them, and
// keeps no request state across calls.
type Engine struct {
	chunks      store.ChunkStore
	conformance store.ConformanceIndex // nil when the store lacks the capability
	bm25        *BM25Search
	semantic    *SemanticSearch
	glob        *GlobMatcher
	ranking     RankingConfig
	remote      *Engine // optional read-only overlay
}

// EngineOption configures the engine.
type EngineOption func(*Engine)

// WithRankingConfig overrides the boost constants.
func WithRankingConfig(cfg RankingConfig) EngineOption {
	return func(e *Engine) { e.ranking = cfg }
}

// WithRemote attaches a read-only overlay engine, merged at query time.
// Local results win on path collisions.
func WithRemote(remote *Engine) EngineOption {
	return func(e *Engine) { e.remote = remote }
}

// NewEngine creates a hybrid search engine over non-owning store references.
func NewEngine(chunks store.ChunkStore, vectors store.VectorStore, embedder embed.Embedder, opts ...EngineOption) (*Engine, error) {
	if chunks == nil {
		return nil, kerrors.ConfigError("chunk store is required", nil)
	}
	if vectors == nil {
		return nil, kerrors.ConfigError("vector store is required", nil)
	}
	if embedder == nil {
		return nil, kerrors.ConfigError("embedder is required", nil)
	}

	e := &Engine{
		chunks:   chunks,
		bm25:     NewBM25Search(chunks),
		semantic: NewSemanticSearch(vectors, chunks, embedder),
		glob:     NewGlobMatcher(),
		ranking:  DefaultRankingConfig(),
	}
	// The conformance track is an optional store capability.
	if ci, ok := chunks.(store.ConformanceIndex); ok {
		e.conformance = ci
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Search executes one hybrid query and returns results sorted by score
// descending, truncated to opts.Limit.
func (e *Engine) Search(ctx context.Context, query string, opts Options) ([]*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	opts = opts.withDefaults()

	results, err := e.searchLocal(ctx, query, opts)
	if err != nil {
		return nil, err
	}

	// Phase G: overlay merge.
	if e.remote != nil {
		remoteResults, remoteErr := e.remote.searchLocal(ctx, query, opts)
		if remoteErr != nil {
			slog.Warn("overlay search failed, returning local results only",
				slog.String("query", query),
				slog.String("error", remoteErr.Error()))
		} else {
			results = mergeOverlay(results, remoteResults, opts.RRFK)
		}
	}

	// Phase H: final sort and truncation.
	sortResults(results)
	if len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results, nil
}

// searchLocal runs phases A-F against this engine's stores.
func (e *Engine) searchLocal(ctx context.Context, query string, opts Options) ([]*Result, error) {
	fetchLimit := opts.Limit * 5
	if opts.Limit*2 > fetchLimit {
		fetchLimit = opts.Limit * 2
	}

	// Phase A: conformance probe.
	var confIDs []string
	if target := conformanceTarget(query); target != "" && e.conformance != nil {
		confChunks, err := e.conformance.FindConformingTypes(ctx, target, fetchLimit)
		if err != nil {
			return nil, err
		}
		for _, c := range confChunks {
			confIDs = append(confIDs, c.ID)
		}
	}

	// Phase B: lexical and semantic searches run concurrently.
	var bm25Results []store.FTSResult
	var semResults []ScoredID

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		bm25Results, err = e.bm25.SearchRaw(gctx, query, fetchLimit)
		if err != nil {
			return fmt.Errorf("bm25 search: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		semResults, err = e.semantic.SearchRaw(gctx, query, fetchLimit)
		if err != nil {
			return fmt.Errorf("semantic search: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Phase C: weighted RRF fusion.
	bm25IDs := make([]string, len(bm25Results))
	bm25ByID := make(map[string]store.FTSResult, len(bm25Results))
	for i, r := range bm25Results {
		bm25IDs[i] = r.ID
		bm25ByID[r.ID] = r
	}
	semIDs := make([]string, len(semResults))
	semByID := make(map[string]ScoredID, len(semResults))
	for i, r := range semResults {
		semIDs[i] = r.ID
		semByID[r.ID] = r
	}

	lists := []RankedList{
		{IDs: bm25IDs, Weight: 1 - opts.SemanticWeight},
		{IDs: semIDs, Weight: opts.SemanticWeight},
	}
	if len(confIDs) > 0 {
		lists = append(lists, RankedList{IDs: confIDs, Weight: e.ranking.ConformanceWeight})
	}
	fused := FuseRRF(opts.RRFK, lists)

	// Phase D: candidate assembly and filtering.
	ids := make([]string, len(fused))
	for i, f := range fused {
		ids[i] = f.ID
	}
	chunks, err := e.chunks.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*model.Chunk, len(chunks))
	for _, c := range chunks {
		byID[c.ID] = c
	}

	results := make([]*Result, 0, len(fused))
	for _, f := range fused {
		if f.Score <= 0 {
			// A candidate every weighted list scored at zero is noise, e.g.
			// semantic-only hits when the semantic weight is 0.
			continue
		}
		chunk, ok := byID[f.ID]
		if !ok || !e.passesFilters(chunk, opts) {
			continue
		}
		r := &Result{
			Chunk: chunk,
			Score: f.Score,
		}
		if hit, ok := bm25ByID[f.ID]; ok {
			r.BM25Score = hit.Score
			r.BM25Rank = f.Ranks[0]
		}
		if hit, ok := semByID[f.ID]; ok {
			r.SemanticScore = hit.Score
			r.SemanticRank = f.Ranks[1]
		}
		results = append(results, r)
	}

	// Phase E: metadata ranking boosts.
	b := newBooster(e.chunks, e.ranking, query)
	for _, r := range results {
		b.apply(ctx, r)
	}
	sortResults(results)

	// Phase F: multi-hop reference expansion.
	if opts.MultiHop && opts.MultiHopDepth > 0 {
		hops, err := e.expandMultiHop(ctx, results, opts)
		if err != nil {
			return nil, err
		}
		results = append(results, hops...)
	}

	return results, nil
}

// passesFilters applies the path glob and extension filters conjunctively.
func (e *Engine) passesFilters(chunk *model.Chunk, opts Options) bool {
	if opts.PathFilter != "" && !e.glob.Match(opts.PathFilter, chunk.Path) {
		return false
	}
	if len(opts.ExtensionFilter) > 0 {
		ext := strings.ToLower(filepath.Ext(chunk.Path))
		matched := false
		for _, want := range opts.ExtensionFilter {
			want = strings.ToLower(want)
			if !strings.HasPrefix(want, ".") {
				want = "." + want
			}
			if ext == want {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// sortResults orders by score descending with deterministic ties on chunk id.
func sortResults(results []*Result) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Chunk.ID < results[j].Chunk.ID
	})
}

// mergeOverlay fuses local and remote result lists with equal RRF weight.
// Remote results whose path duplicates a local result are dropped first, so
// the local variant always wins a path collision.
func mergeOverlay(local, remote []*Result, k int) []*Result {
	localPaths := make(map[string]struct{}, len(local))
	for _, r := range local {
		localPaths[r.Chunk.Path] = struct{}{}
	}
	filtered := make([]*Result, 0, len(remote))
	for _, r := range remote {
		if _, dup := localPaths[r.Chunk.Path]; dup {
			continue
		}
		filtered = append(filtered, r)
	}
	if len(filtered) == 0 {
		return local
	}

	merged := make([]*Result, 0, len(local)+len(filtered))
	for rank, r := range local {
		r.Score = 1.0 / float64(k+rank+1)
		merged = append(merged, r)
	}
	for rank, r := range filtered {
		r.Score = 1.0 / float64(k+rank+1)
		merged = append(merged, r)
	}
	// Stable sort on score alone: equal ranks keep insertion order, so the
	// local list wins ties against the overlay.
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	return merged
}
