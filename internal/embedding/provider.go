// Package embedding implements the pluggable embedding.Provider
// abstraction: OpenAI, Ollama, and a deterministic Dummy used by tests.
package embedding

import (
	"context"
	"fmt"

	"dhosearch/internal/config"
)

// Provider embeds text into a fixed-dimension vector and owns the
// per-provider chunk table binding that storage routes reads/writes to,
// Whether a book already has embeddings for this
// provider is a storage-layer question (storage.BookHasEmbeddingsForProvider
// keyed by TableName()), not something the provider itself tracks — this
// keeps that capability out of the provider without giving it
// a database dependency.
type Provider interface {
	// Embed returns the embedding vector for text, retrying transient
	// failures per the configured backoff policy.
	Embed(ctx context.Context, text string) ([]float32, error)
	// TableName returns the provider-specific chunk table this
	// provider's rows belong in (e.g. "chunks", "chunks_nomic").
	TableName() string
	// Dimension returns the fixed vector width this provider produces.
	Dimension() int
	// Name returns the short provider tag (e.g. "openai", "ollama", "dummy").
	Name() string
}

// FromConfig is the single place that inspects the PROVIDER string,
// constructing the variant it selects.
func FromConfig(cfg config.Config) (Provider, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return NewOpenAI(cfg.OpenAI, cfg.Embedding), nil
	case config.ProviderOllama:
		return NewOllama(cfg.Ollama, cfg.Embedding), nil
	case config.ProviderDummy:
		return NewDummy(), nil
	default:
		return nil, fmt.Errorf("embedding: unrecognized provider %q", cfg.Provider)
	}
}
