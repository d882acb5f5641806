package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuseRRFFormula(t *testing.T) {
	lists := []RankedList{
		{IDs: []string{"a", "b"}, Weight: 0.5},
		{IDs: []string{"b", "c"}, Weight: 0.5},
	}

	results := FuseRRF(60, lists)
	require.Len(t, results, 3)

	byID := make(map[string]Fused)
	for _, r := range results {
		byID[r.ID] = r
	}

	// b appears in both lists: 0.5/61 + 0.5/62.
	assert.InDelta(t, 0.5/61+0.5/62, byID["b"].Score, 1e-12)
	// a only in list 1 at rank 1; the missing list contributes 0.
	assert.InDelta(t, 0.5/61, byID["a"].Score, 1e-12)
	assert.InDelta(t, 0.5/62, byID["c"].Score, 1e-12)

	// b fused highest.
	assert.Equal(t, "b", results[0].ID)
}

func TestFuseRRFRanksPerList(t *testing.T) {
	lists := []RankedList{
		{IDs: []string{"a", "b"}, Weight: 1},
		{IDs: []string{"b"}, Weight: 1},
	}

	results := FuseRRF(60, lists)
	byID := make(map[string]Fused)
	for _, r := range results {
		byID[r.ID] = r
	}

	assert.Equal(t, []int{1, 0}, byID["a"].Ranks)
	assert.Equal(t, []int{2, 1}, byID["b"].Ranks)
}

func TestFuseRRFDeterministic(t *testing.T) {
	lists := []RankedList{
		{IDs: []string{"x", "y", "z"}, Weight: 0.35},
		{IDs: []string{"z", "x", "w"}, Weight: 0.65},
	}

	first := FuseRRF(60, lists)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, FuseRRF(60, lists))
	}
}

func TestFuseRRFTieBreaksOnFirstListRank(t *testing.T) {
	// a and b have identical fused scores; a ranks higher in the first list.
	lists := []RankedList{
		{IDs: []string{"a", "b"}, Weight: 1},
		{IDs: []string{"b", "a"}, Weight: 1},
	}

	results := FuseRRF(60, lists)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ID)
	assert.Equal(t, "b", results[1].ID)
}

func TestFuseRRFZeroWeightList(t *testing.T) {
	lists := []RankedList{
		{IDs: []string{"a"}, Weight: 0},
		{IDs: []string{"b"}, Weight: 1},
	}

	results := FuseRRF(60, lists)
	require.Len(t, results, 2)
	assert.Equal(t, "b", results[0].ID)
	assert.Equal(t, 0.0, results[1].Score)
}

func TestFuseRRFEmpty(t *testing.T) {
	assert.Empty(t, FuseRRF(60, nil))
	assert.Empty(t, FuseRRF(60, []RankedList{{IDs: nil, Weight: 1}}))
}
