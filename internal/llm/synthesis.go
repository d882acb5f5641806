package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/kestrelhq/kestrel/internal/search"
)

// synthesisResultLimit bounds how many results feed the synthesis prompt.
const synthesisResultLimit = 5

// synthesisContentLimit truncates each result's content in the prompt.
const synthesisContentLimit = 1200

// Synthesizer turns ranked results into a prose answer and suggested
// follow-up queries. Pure orchestration over the provider chain; no state.
type Synthesizer struct {
	provider Provider
}

// NewSynthesizer creates a synthesizer over the given provider.
func NewSynthesizer(provider Provider) *Synthesizer {
	return &Synthesizer{provider: provider}
}

const synthesisSystemPrompt = `You answer questions about a codebase using
retrieved code fragments. Cite fragments by their file path. If the fragments
do not answer the question, say so. Be concise.`

// Synthesize produces a prose answer for the query from the top results.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, results []*search.Result) (string, error) {
	if len(results) == 0 {
		return "", nil
	}

	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Question: %s\n\nRetrieved fragments:\n", query)
	for i, r := range results {
		if i == synthesisResultLimit {
			break
		}
		content := r.Chunk.Content
		if len(content) > synthesisContentLimit {
			content = content[:synthesisContentLimit] + "\n..."
		}
		fmt.Fprintf(&prompt, "\n--- %s:%d (%s)\n%s\n", r.Chunk.Path, r.Chunk.StartLine, r.Chunk.Kind, content)
	}

	return s.provider.Complete(ctx, []Message{
		{Role: "system", Content: synthesisSystemPrompt},
		{Role: "user", Content: prompt.String()},
	}, "", CompleteTimeout)
}

const followUpSystemPrompt = `Given a code search query and the symbols it
surfaced, suggest three follow-up search queries the user is likely to run
next. One per line, no numbering, no prose.`

// FollowUps suggests follow-up queries from the result symbols.
func (s *Synthesizer) FollowUps(ctx context.Context, query string, results []*search.Result) ([]string, error) {
	var symbols []string
	for i, r := range results {
		if i == synthesisResultLimit {
			break
		}
		if name := r.Chunk.QualifiedName(); name != "" {
			symbols = append(symbols, name)
		}
	}

	raw, err := s.provider.Complete(ctx, []Message{
		{Role: "system", Content: followUpSystemPrompt},
		{Role: "user", Content: fmt.Sprintf("Query: %s\nSymbols: %s", query, strings.Join(symbols, ", "))},
	}, "", CompleteTimeout)
	if err != nil {
		return nil, err
	}

	var followUps []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "-*0123456789. "))
		if line != "" {
			followUps = append(followUps, line)
		}
	}
	if len(followUps) > 3 {
		followUps = followUps[:3]
	}
	return followUps, nil
}
