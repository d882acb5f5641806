package search

import (
	"sort"
)

// RankedList is one input to RRF fusion: ids in rank order with the list's
// fusion weight.
type RankedList struct {
	IDs    []string
	Weight float64
}

// Fused is one document after fusion. Ranks holds the 1-based rank per input
// list, 0 when the document was absent from that list.
type Fused struct {
	ID    string
	Score float64
	Ranks []int
}

// FuseRRF combines N ranked lists with weighted Reciprocal Rank Fusion:
//
//	score(d) = Σᵢ wᵢ · 1/(k + rankᵢ(d))
//
// where the term is 0 for lists that do not contain d. Output is sorted by
// score descending; ties break on the first list's rank ascending (absent
// last), then on id, so the ordering is byte-identical for identical inputs.
func FuseRRF(k int, lists []RankedList) []Fused {
	if k < 1 {
		k = DefaultRRFK
	}

	fused := make(map[string]*Fused)
	for listIdx, list := range lists {
		for rank, id := range list.IDs {
			f, ok := fused[id]
			if !ok {
				f = &Fused{ID: id, Ranks: make([]int, len(lists))}
				fused[id] = f
			}
			if f.Ranks[listIdx] != 0 {
				continue // duplicate id within one list keeps its best rank
			}
			f.Ranks[listIdx] = rank + 1
			f.Score += list.Weight / float64(k+rank+1)
		}
	}

	results := make([]Fused, 0, len(fused))
	for _, f := range fused {
		results = append(results, *f)
	}

	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		ra, rb := tieRank(a.Ranks), tieRank(b.Ranks)
		if ra != rb {
			return ra < rb
		}
		return a.ID < b.ID
	})
	return results
}

// tieRank returns the first list's rank for tie-breaking, with absent
// documents ordered last.
func tieRank(ranks []int) int {
	if len(ranks) == 0 || ranks[0] == 0 {
		return int(^uint(0) >> 1)
	}
	return ranks[0]
}
