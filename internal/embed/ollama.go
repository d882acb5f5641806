package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	kerrors "github.com/kestrelhq/kestrel/internal/errors"
)

// Ollama defaults.
const (
	DefaultOllamaHost  = "http://localhost:11434"
	DefaultOllamaModel = "nomic-embed-text"
)

// OllamaConfig configures the Ollama embedding provider.
type OllamaConfig struct {
	Host       string
	Model      string
	Dimensions int
	BatchSize  int
	Timeout    time.Duration
}

// OllamaEmbedder generates embeddings through Ollama's HTTP API.
type OllamaEmbedder struct {
	client *http.Client
	config OllamaConfig
}

var _ Embedder = (*OllamaEmbedder)(nil)

// NewOllamaEmbedder creates an Ollama embedder. The per-request timeout comes
// from context deadlines, not the client, so callers control cancellation.
func NewOllamaEmbedder(cfg OllamaConfig) *OllamaEmbedder {
	if cfg.Host == "" {
		cfg.Host = DefaultOllamaHost
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOllamaModel
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &OllamaEmbedder{
		client: &http.Client{Transport: &http.Transport{
			MaxIdleConns:        4,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     10 * time.Second,
		}},
		config: cfg,
	}
}

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed generates the embedding for a single text.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, kerrors.ProviderError(kerrors.CodeInvalidInput, "empty text", nil)
	}
	vectors, err := e.request(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, kerrors.ProviderError(kerrors.CodeAPIError,
			fmt.Sprintf("expected 1 embedding, got %d", len(vectors)), nil)
	}
	return vectors[0], nil
}

// EmbedBatch generates embeddings in batches of the configured size.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.config.BatchSize {
		end := start + e.config.BatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := e.request(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

func (e *OllamaEmbedder) request(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(ollamaEmbedRequest{Model: e.config.Model, Input: texts})
	if err != nil {
		return nil, kerrors.ProviderError(kerrors.CodeInvalidInput, "encode request", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, e.config.Host+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, kerrors.ProviderError(kerrors.CodeNetworkError, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		if reqCtx.Err() == context.DeadlineExceeded {
			return nil, kerrors.ProviderError(kerrors.CodeTimeout,
				fmt.Sprintf("embedding request exceeded %s", e.config.Timeout), err)
		}
		return nil, kerrors.ProviderError(kerrors.CodeNetworkError, "embedding request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, kerrors.ProviderError(kerrors.CodeRateLimited, "embedding backend rate limited", nil)
	}
	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, kerrors.ProviderError(kerrors.CodeAPIError,
			fmt.Sprintf("embedding backend returned %d: %s", resp.StatusCode, string(payload)), nil)
	}

	var decoded ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, kerrors.ProviderError(kerrors.CodeAPIError, "decode response", err)
	}
	if len(decoded.Embeddings) != len(texts) {
		return nil, kerrors.ProviderError(kerrors.CodeAPIError,
			fmt.Sprintf("expected %d embeddings, got %d", len(texts), len(decoded.Embeddings)), nil)
	}
	return decoded.Embeddings, nil
}

// Dimensions returns the configured embedding dimension.
func (e *OllamaEmbedder) Dimensions() int { return e.config.Dimensions }

// ID returns the provider identifier.
func (e *OllamaEmbedder) ID() string { return "ollama" }

// Name returns the provider name with its model.
func (e *OllamaEmbedder) Name() string {
	return fmt.Sprintf("Ollama (%s)", e.config.Model)
}

// Available probes the Ollama server.
func (e *OllamaEmbedder) Available(ctx context.Context) bool {
	reqCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, e.config.Host+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Close drops idle connections.
func (e *OllamaEmbedder) Close() error {
	e.client.CloseIdleConnections()
	return nil
}
