package embed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	kerrors "github.com/kestrelhq/kestrel/internal/errors"
)

// Chain tries providers in declared order, skipping those whose Available
// reports false. The first success wins. When every provider fails, the
// chain surfaces a single all_providers_failed error carrying each failure.
type Chain struct {
	providers []Embedder
}

var _ Embedder = (*Chain)(nil)

// NewChain creates a provider chain. At least one provider is required.
func NewChain(providers ...Embedder) (*Chain, error) {
	if len(providers) == 0 {
		return nil, kerrors.ConfigError("embedding chain needs at least one provider", nil)
	}
	return &Chain{providers: providers}, nil
}

// Embed tries each provider until one succeeds.
func (c *Chain) Embed(ctx context.Context, text string) ([]float32, error) {
	var failures []error
	for _, p := range c.providers {
		if !p.Available(ctx) {
			slog.Debug("embedding provider unavailable, skipping", slog.String("provider", p.ID()))
			continue
		}
		vec, err := p.Embed(ctx, text)
		if err == nil {
			return vec, nil
		}
		failures = append(failures, fmt.Errorf("%s: %w", p.ID(), err))
	}
	return nil, c.allFailed(failures)
}

// EmbedBatch tries each provider until one succeeds for the whole batch.
func (c *Chain) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var failures []error
	for _, p := range c.providers {
		if !p.Available(ctx) {
			continue
		}
		vectors, err := p.EmbedBatch(ctx, texts)
		if err == nil {
			return vectors, nil
		}
		failures = append(failures, fmt.Errorf("%s: %w", p.ID(), err))
	}
	return nil, c.allFailed(failures)
}

func (c *Chain) allFailed(failures []error) error {
	if len(failures) == 0 {
		return kerrors.ProviderError(kerrors.CodeAllProvidersFailed, "no embedding provider is available", nil)
	}
	names := make([]string, len(failures))
	for i, f := range failures {
		names[i] = f.Error()
	}
	return kerrors.ProviderError(kerrors.CodeAllProvidersFailed,
		"all embedding providers failed: "+strings.Join(names, "; "),
		errors.Join(failures...))
}

// Dimensions returns the dimension of the first provider reporting a positive
// width, or 0 if none does; availability is not checked. All providers in one chain must be
// configured to the same width; the vector store enforces it on insert.
func (c *Chain) Dimensions() int {
	for _, p := range c.providers {
		if d := p.Dimensions(); d > 0 {
			return d
		}
	}
	return 0
}

// ID returns the chain identifier.
func (c *Chain) ID() string { return "chain" }

// Name lists the chained providers.
func (c *Chain) Name() string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.ID()
	}
	return "chain(" + strings.Join(names, " -> ") + ")"
}

// Available reports whether any provider in the chain is available.
func (c *Chain) Available(ctx context.Context) bool {
	for _, p := range c.providers {
		if p.Available(ctx) {
			return true
		}
	}
	return false
}

// Close closes every provider, returning the first error.
func (c *Chain) Close() error {
	var firstErr error
	for _, p := range c.providers {
		if err := p.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
