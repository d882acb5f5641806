package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	kerrors "github.com/kestrelhq/kestrel/internal/errors"
)

// Ollama defaults.
const (
	DefaultOllamaHost  = "http://localhost:11434"
	DefaultOllamaModel = "qwen2.5-coder"
)

// OllamaProvider completes through a local Ollama server.
type OllamaProvider struct {
	host   string
	model  string
	client *http.Client
}

var _ Provider = (*OllamaProvider)(nil)

// NewOllamaProvider creates an Ollama completion provider.
func NewOllamaProvider(host, model string) *OllamaProvider {
	if host == "" {
		host = DefaultOllamaHost
	}
	if model == "" {
		model = DefaultOllamaModel
	}
	return &OllamaProvider{
		host:   host,
		model:  model,
		client: &http.Client{},
	}
}

type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
}

type ollamaChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatResponse struct {
	Message ollamaChatMessage `json:"message"`
}

// Complete sends a chat completion request.
func (p *OllamaProvider) Complete(ctx context.Context, messages []Message, model string, timeout time.Duration) (string, error) {
	if model == "" {
		model = p.model
	}
	chat := make([]ollamaChatMessage, len(messages))
	for i, m := range messages {
		chat[i] = ollamaChatMessage{Role: m.Role, Content: m.Content}
	}
	body, err := json.Marshal(ollamaChatRequest{Model: model, Messages: chat})
	if err != nil {
		return "", kerrors.ProviderError(kerrors.CodeInvalidInput, "encode request", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, p.host+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", kerrors.ProviderError(kerrors.CodeNetworkError, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		if reqCtx.Err() == context.DeadlineExceeded {
			return "", kerrors.ProviderError(kerrors.CodeTimeout,
				fmt.Sprintf("completion exceeded %s", timeout), err)
		}
		return "", kerrors.ProviderError(kerrors.CodeNetworkError, "completion request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", kerrors.ProviderError(kerrors.CodeAPIError,
			fmt.Sprintf("completion backend returned %d", resp.StatusCode), nil)
	}

	var decoded ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", kerrors.ProviderError(kerrors.CodeAPIError, "decode response", err)
	}
	return decoded.Message.Content, nil
}

// Available probes the Ollama server.
func (p *OllamaProvider) Available(ctx context.Context) bool {
	reqCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, p.host+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// ID returns the provider identifier.
func (p *OllamaProvider) ID() string { return "ollama" }
