package search

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kestrelhq/kestrel/internal/model"
)

func TestAnalyzeIntentImplementation(t *testing.T) {
	intent := analyzeIntent("what implements ChunkStore")

	assert.True(t, intent.asksAboutImplementation)
	assert.Contains(t, intent.targetTypes, "ChunkStore")
	assert.True(t, intent.needsReranking)
}

func TestAnalyzeIntentTargetCapitalization(t *testing.T) {
	intent := analyzeIntent("conforms to fetchable")
	assert.Contains(t, intent.targetTypes, "Fetchable")
}

func TestAnalyzeIntentPascalCaseTokens(t *testing.T) {
	intent := analyzeIntent("where is VectorStore used")
	assert.Contains(t, intent.targetTypes, "VectorStore")
	assert.True(t, intent.needsReranking)
}

func TestAnalyzeIntentPreferredKinds(t *testing.T) {
	intent := analyzeIntent("which classes handle retries")
	_, hasClass := intent.preferredKinds[model.KindClass]
	assert.True(t, hasClass)

	intent = analyzeIntent("list all protocols")
	_, hasProtocol := intent.preferredKinds[model.KindProtocol]
	assert.True(t, hasProtocol)
	assert.True(t, intent.mentionsProtocol)
}

func TestAnalyzeIntentPlainQueryNoRerank(t *testing.T) {
	intent := analyzeIntent("retry with backoff")
	assert.False(t, intent.needsReranking)
}

func TestIntentBoostConformanceMatch(t *testing.T) {
	intent := analyzeIntent("what implements ChunkStore")

	conforming := &model.Chunk{
		Kind:         model.KindClass,
		Symbols:      []string{"SQLiteChunkStore"},
		Conformances: []string{"ChunkStore"},
	}
	// Conformance 1.5 and implementing-type 1.2 both apply.
	assert.InDelta(t, 1.5*1.2, intentBoost(conforming, intent), 1e-9)

	symbolOnly := &model.Chunk{
		Kind:    model.KindClass,
		Symbols: []string{"ChunkStoreFactory"},
	}
	assert.InDelta(t, 1.2, intentBoost(symbolOnly, intent), 1e-9)

	unrelated := &model.Chunk{
		Kind:    model.KindFunction,
		Symbols: []string{"parseFlags"},
	}
	assert.InDelta(t, 1.0, intentBoost(unrelated, intent), 1e-9)
}

func TestIntentBoostProtocolKind(t *testing.T) {
	intent := analyzeIntent("protocol for storage")

	protocol := &model.Chunk{Kind: model.KindProtocol, Symbols: []string{"Storage"}}
	boost := intentBoost(protocol, intent)
	assert.Greater(t, boost, 1.0)
}

func TestIntentBoostPreferredKind(t *testing.T) {
	intent := analyzeIntent("actors that process events")

	actor := &model.Chunk{Kind: model.KindActor, Symbols: []string{"EventLoop"}}
	assert.InDelta(t, 1.3, intentBoost(actor, intent), 1e-9)

	fn := &model.Chunk{Kind: model.KindFunction, Symbols: []string{"process"}}
	assert.InDelta(t, 1.0, intentBoost(fn, intent), 1e-9)
}

func TestConformanceTarget(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"what implements ChunkStore", "ChunkStore"},
		{"implementations of Fetchable", "Fetchable"},
		{"conforms to equatable", "Equatable"},
		{"inherits from BaseViewController", "BaseViewController"},
		{"types that implement Codec", "Codec"},
		{"retry with backoff", ""},
		{"plain symbol lookup", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, conformanceTarget(tt.query), "query %q", tt.query)
	}
}
