package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueryTerms(t *testing.T) {
	tests := []struct {
		query string
		want  []string
	}{
		{"what implements ChunkStore", []string{"ChunkStore"}},
		{"how do I look up a user", []string{"do", "look", "up", "user"}},
		{"USearchError", []string{"USearchError"}},
		{"the a an", nil},
		{"x", nil},
		{"vector-search engine", []string{"vector", "search", "engine"}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, queryTerms(tt.query), "query %q", tt.query)
	}
}

func TestIsCamelCaseIdentifier(t *testing.T) {
	assert.True(t, isCamelCaseIdentifier("ChunkStore"))
	assert.True(t, isCamelCaseIdentifier("getUser"))
	assert.True(t, isCamelCaseIdentifier("USearchError"))

	assert.False(t, isCamelCaseIdentifier("ab"))        // too short
	assert.False(t, isCamelCaseIdentifier("lowercase")) // no upper
	assert.False(t, isCamelCaseIdentifier("UPPER"))     // no lower
	assert.False(t, isCamelCaseIdentifier("9Lives"))    // starts with digit
	assert.False(t, isCamelCaseIdentifier("a b"))       // contains space
}

func TestIsConceptualQuery(t *testing.T) {
	assert.True(t, isConceptualQuery("how does ranking work"))
	assert.True(t, isConceptualQuery("what is the chunk store"))
	assert.True(t, isConceptualQuery("nearest neighbor recall"))
	assert.True(t, isConceptualQuery("semantic search pipeline"))

	assert.False(t, isConceptualQuery("USearchError"))
	assert.False(t, isConceptualQuery("deleteByPath"))
}
