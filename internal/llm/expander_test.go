package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kerrors "github.com/kestrelhq/kestrel/internal/errors"
)

// fakeProvider returns canned completions and records call counts.
type fakeProvider struct {
	response  string
	err       error
	available bool
	calls     int
}

func (f *fakeProvider) Complete(ctx context.Context, messages []Message, model string, timeout time.Duration) (string, error) {
	f.calls++
	return f.response, f.err
}

func (f *fakeProvider) Available(ctx context.Context) bool { return f.available }
func (f *fakeProvider) ID() string                         { return "fake" }

func TestExpanderParsesResponse(t *testing.T) {
	provider := &fakeProvider{
		available: true,
		response:  `{"synonyms": ["lookup", "fetch"], "concepts": ["cache"], "variations": ["find the user"]}`,
	}
	e := NewExpander(provider)

	expanded, err := e.Expand(context.Background(), "get user")
	require.NoError(t, err)

	assert.Equal(t, "get user", expanded.Original)
	assert.Equal(t, []string{"lookup", "fetch"}, expanded.Synonyms)
	assert.Equal(t, []string{"cache"}, expanded.Concepts)
	assert.Contains(t, expanded.AllTerms, "get")
	assert.Contains(t, expanded.AllTerms, "lookup")
	assert.Contains(t, expanded.AllTerms, "cache")
	assert.Contains(t, expanded.CombinedQuery, "lookup")
}

func TestExpanderToleratesFencedJSON(t *testing.T) {
	provider := &fakeProvider{
		available: true,
		response:  "```json\n{\"synonyms\": [\"a1\"], \"concepts\": [], \"variations\": []}\n```",
	}
	e := NewExpander(provider)

	expanded, err := e.Expand(context.Background(), "query")
	require.NoError(t, err)
	assert.Equal(t, []string{"a1"}, expanded.Synonyms)
}

func TestExpanderCachesByExactQuery(t *testing.T) {
	provider := &fakeProvider{
		available: true,
		response:  `{"synonyms": [], "concepts": [], "variations": []}`,
	}
	e := NewExpander(provider)
	ctx := context.Background()

	_, err := e.Expand(ctx, "same query")
	require.NoError(t, err)
	_, err = e.Expand(ctx, "same query")
	require.NoError(t, err)
	assert.Equal(t, 1, provider.calls)

	_, err = e.Expand(ctx, "different query")
	require.NoError(t, err)
	assert.Equal(t, 2, provider.calls)
}

func TestExpanderSurfacesProviderFailure(t *testing.T) {
	provider := &fakeProvider{
		available: true,
		err:       kerrors.ProviderError(kerrors.CodeTimeout, "too slow", nil),
	}
	e := NewExpander(provider)

	_, err := e.Expand(context.Background(), "query")
	require.Error(t, err)
}

func TestExpanderSurfacesMalformedJSON(t *testing.T) {
	provider := &fakeProvider{available: true, response: "not json at all"}
	e := NewExpander(provider)

	_, err := e.Expand(context.Background(), "query")
	require.Error(t, err)
}

func TestChainSkipsUnavailableProviders(t *testing.T) {
	down := &fakeProvider{available: false, response: "from down"}
	up := &fakeProvider{available: true, response: "from up"}
	chain := NewChain(down, up)

	text, err := chain.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}}, "", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "from up", text)
	assert.Zero(t, down.calls)
}

func TestChainAllProvidersFailed(t *testing.T) {
	chain := NewChain(&fakeProvider{available: false})

	_, err := chain.Complete(context.Background(), nil, "", time.Second)
	require.Error(t, err)
	assert.True(t, kerrors.IsKind(err, kerrors.KindProvider))
	assert.False(t, chain.Available(context.Background()))
}

func TestEmptyChainIsUnavailable(t *testing.T) {
	chain := NewChain()
	assert.False(t, chain.Available(context.Background()))

	_, err := chain.Complete(context.Background(), nil, "", time.Second)
	require.Error(t, err)
}
