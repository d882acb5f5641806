package search

import (
	"context"
	"log/slog"
	"math"
)

// multiHopSeedLimit bounds how many results seed each expansion level.
const multiHopSeedLimit = 5

// multiHopProbeLimit bounds the BM25 probe per referenced symbol.
const multiHopProbeLimit = 3

// expandMultiHop follows the references of the top seed results: each
// referenced symbol is probed through BM25, unseen hits become results with
// hop metadata and a decayed score, and the new hits seed the next level up
// to opts.MultiHopDepth. References are symbolic names resolved by search,
// never pointer traversal, so cycles cannot form.
func (e *Engine) expandMultiHop(ctx context.Context, seeds []*Result, opts Options) ([]*Result, error) {
	seen := make(map[string]struct{}, len(seeds))
	for _, r := range seeds {
		seen[r.Chunk.ID] = struct{}{}
	}

	current := seeds
	if len(current) > multiHopSeedLimit {
		current = current[:multiHopSeedLimit]
	}

	var expanded []*Result
	for depth := 1; depth <= opts.MultiHopDepth && len(current) > 0; depth++ {
		decay := math.Pow(e.ranking.MultiHopDecay, float64(depth))

		// Collect unseen hit ids for this level, preserving probe order.
		type hopHit struct {
			id    string
			score float64
		}
		var hits []hopHit
		for _, seed := range current {
			for _, ref := range seed.Chunk.References {
				probe, err := e.bm25.SearchRaw(ctx, ref, multiHopProbeLimit)
				if err != nil {
					slog.Debug("multi-hop probe failed",
						slog.String("reference", ref),
						slog.String("error", err.Error()))
					continue
				}
				for _, hit := range probe {
					if _, dup := seen[hit.ID]; dup {
						continue
					}
					seen[hit.ID] = struct{}{}
					hits = append(hits, hopHit{id: hit.ID, score: hit.Score})
				}
			}
		}
		if len(hits) == 0 {
			break
		}

		ids := make([]string, len(hits))
		for i, h := range hits {
			ids[i] = h.id
		}
		chunks, err := e.chunks.GetByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		byID := make(map[string]int, len(chunks))
		for i, c := range chunks {
			byID[c.ID] = i
		}

		var level []*Result
		for _, h := range hits {
			idx, ok := byID[h.id]
			if !ok {
				continue
			}
			chunk := chunks[idx]
			// Hop results honor the same filters as direct hits.
			if !e.passesFilters(chunk, opts) {
				continue
			}
			level = append(level, &Result{
				Chunk:      chunk,
				Score:      h.score * decay,
				BM25Score:  h.score,
				IsMultiHop: true,
				HopDepth:   depth,
			})
		}

		expanded = append(expanded, level...)
		current = level
		if len(current) > multiHopSeedLimit {
			current = current[:multiHopSeedLimit]
		}
	}

	return expanded, nil
}
