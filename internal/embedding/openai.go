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

const openAITableName = "chunks"
const openAIDimension = 1536

// OpenAI calls the OpenAI-compatible embeddings endpoint with raw HTTP
// rather than an SDK client. See DESIGN.md for why.
type OpenAI struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	policy  retryPolicy
}

const openAIDefaultURL = "https://api.openai.com/v1/embeddings"

// NewOpenAI constructs the OpenAI embedding provider.
func NewOpenAI(cfg config.OpenAIConfig, embed config.EmbeddingConfig) *OpenAI {
	return &OpenAI{
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		baseURL: openAIDefaultURL,
		client:  &http.Client{},
		policy:  newRetryPolicy(embed.Timeout, embed.MaxRetries, embed.RetryBackoff),
	}
}

func (o *OpenAI) Name() string      { return "openai" }
func (o *OpenAI) TableName() string { return openAITableName }
func (o *OpenAI) Dimension() int    { return openAIDimension }

type openAIEmbedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed implements Provider.
func (o *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	return o.policy.withRetry(ctx, "openai", func(cctx context.Context) ([]float32, error) {
		return o.doEmbed(cctx, o.baseURL, text)
	})
}

func (o *OpenAI) doEmbed(ctx context.Context, url, text string) ([]float32, error) {
	body, err := json.Marshal(openAIEmbedRequest{Model: o.model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("openai embeddings error: %s: %s", resp.Status, string(b))
	}

	var er openAIEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(er.Data) == 0 {
		return nil, fmt.Errorf("openai embeddings: empty response")
	}
	return er.Data[0].Embedding, nil
}
