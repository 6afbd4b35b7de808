package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"dhosearch/internal/config"
)

const ollamaTableName = "chunks_nomic"
const ollamaDimension = 768

// Ollama calls a local or remote Ollama server's /api/embed endpoint.
type Ollama struct {
	baseURL string
	model   string
	client  *http.Client
	policy  retryPolicy
}

// NewOllama constructs the Ollama embedding provider.
func NewOllama(cfg config.OllamaConfig, embed config.EmbeddingConfig) *Ollama {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	model := cfg.Model
	if model == "" {
		model = "nomic-embed-text"
	}
	return &Ollama{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{},
		policy:  newRetryPolicy(embed.Timeout, embed.MaxRetries, embed.RetryBackoff),
	}
}

func (o *Ollama) Name() string      { return "ollama" }
func (o *Ollama) TableName() string { return ollamaTableName }
func (o *Ollama) Dimension() int    { return ollamaDimension }

type ollamaEmbedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed implements Provider.
func (o *Ollama) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("ollama: text cannot be empty")
	}
	return o.policy.withRetry(ctx, "ollama", func(cctx context.Context) ([]float32, error) {
		return o.doEmbed(cctx, text)
	})
}

func (o *Ollama) doEmbed(ctx context.Context, text string) ([]float32, error) {
	reqBody, err := json.Marshal(ollamaEmbedRequest{Model: o.model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := o.baseURL + "/api/embed"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connect to ollama at %s: %w (is ollama running?)", o.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var er ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(er.Embeddings) == 0 || len(er.Embeddings[0]) == 0 {
		return nil, fmt.Errorf("ollama: empty embedding (model may not be pulled: try 'ollama pull %s')", o.model)
	}
	return er.Embeddings[0], nil
}
