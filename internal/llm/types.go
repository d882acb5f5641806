// Package llm defines the optional LLM provider contract and the adapters
// built on it: query expansion, result synthesis, and follow-up suggestions.
// The engine functions fully with zero providers configured.
package llm

import (
	"context"
	"strings"
	"time"

	kerrors "github.com/kestrelhq/kestrel/internal/errors"
)

// Per-call timeouts.
const (
	// ExpandTimeout bounds query-expansion calls.
	ExpandTimeout = 30 * time.Second

	// CompleteTimeout bounds synthesis and follow-up calls.
	CompleteTimeout = 60 * time.Second
)

// Message is one turn of a completion conversation.
type Message struct {
	Role    string // "system", "user", "assistant"
	Content string
}

// Provider is a completion backend.
type Provider interface {
	// Complete sends messages and returns the completion text. An empty
	// model selects the provider default.
	Complete(ctx context.Context, messages []Message, model string, timeout time.Duration) (string, error)

	// Available reports whether the provider is ready to serve.
	Available(ctx context.Context) bool

	// ID returns the stable provider identifier.
	ID() string
}

// Chain tries providers in declared order, skipping unavailable ones; the
// first success wins.
type Chain struct {
	providers []Provider
}

// NewChain creates a provider chain. An empty chain is valid: it reports
// unavailable and every call fails with all_providers_failed, which callers
// treat as "no LLM configured".
func NewChain(providers ...Provider) *Chain {
	return &Chain{providers: providers}
}

// Complete tries each provider until one succeeds.
func (c *Chain) Complete(ctx context.Context, messages []Message, model string, timeout time.Duration) (string, error) {
	var failures []string
	for _, p := range c.providers {
		if !p.Available(ctx) {
			continue
		}
		text, err := p.Complete(ctx, messages, model, timeout)
		if err == nil {
			return text, nil
		}
		failures = append(failures, p.ID()+": "+err.Error())
	}
	if len(failures) == 0 {
		return "", kerrors.ProviderError(kerrors.CodeAllProvidersFailed, "no LLM provider is available", nil)
	}
	return "", kerrors.ProviderError(kerrors.CodeAllProvidersFailed,
		"all LLM providers failed: "+strings.Join(failures, "; "), nil)
}

// Available reports whether any provider is available.
func (c *Chain) Available(ctx context.Context) bool {
	for _, p := range c.providers {
		if p.Available(ctx) {
			return true
		}
	}
	return false
}

// ID returns the chain identifier.
func (c *Chain) ID() string { return "chain" }
