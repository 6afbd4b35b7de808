// Package config resolves process environment variables into a single
// immutable snapshot, following the env-first loading style of
// singularityio/internal/config rather than a YAML-driven config file.
package config

import (
	"fmt"
	"strings"
)

// ProviderName identifies an embedding provider implementation.
type ProviderName string

const (
	ProviderOpenAI ProviderName = "openai"
	ProviderOllama ProviderName = "ollama"
	ProviderDummy  ProviderName = "dummy"
)

// ChunkingStrategyName identifies a chunking.Strategy implementation.
type ChunkingStrategyName string

const (
	StrategySentenceSplitter ChunkingStrategyName = "sentence_splitter"
	StrategyWordOverlap      ChunkingStrategyName = "word_overlap"
)

// Environment distinguishes how strictly Load validates required fields.
type Environment string

const (
	EnvLocal      Environment = "local"
	EnvTest       Environment = "test"
	EnvProduction Environment = "production"
)

// OpenAIConfig holds credentials and model selection for the OpenAI provider.
type OpenAIConfig struct {
	APIKey string
	Model  string
}

// OllamaConfig holds endpoint and model selection for the Ollama provider.
type OllamaConfig struct {
	BaseURL string
	Model   string
}

// EmbeddingConfig holds the provider-agnostic retry/timeout policy shared
// by every embedding.Provider implementation.
type EmbeddingConfig struct {
	Timeout        int // seconds, per call
	MaxRetries     int // attempts beyond the first
	RetryBackoff   int // base seconds, doubled per retry
}

// ChunkingConfig holds chunking strategy selection and its parameters.
type ChunkingConfig struct {
	Strategy  ChunkingStrategyName
	ChunkSize int // max tokens per chunk, sentence-splitter only
}

// StorageConfig holds the Postgres connection target and pool bounds.
type StorageConfig struct {
	DatabaseURL string
	Host        string
	Port        string
	User        string
	Password    string
	Database    string
	MinConns    int32
	MaxConns    int32
}

// CORSConfig holds the set of origins allowed to call the search service.
type CORSConfig struct {
	AllowedOrigins []string
}

// AdminConfig gates the introspection/refresh endpoints.
type AdminConfig struct {
	Enabled  bool
	Token    string
	AllowView bool
}

// LogConfig controls observability output.
type LogConfig struct {
	Level  string
	Format string // "json" | "console"
}

// Config is the fully resolved, immutable snapshot of runtime settings.
type Config struct {
	Provider          ProviderName
	OpenAI            OpenAIConfig
	Ollama            OllamaConfig
	Embedding         EmbeddingConfig
	Chunking          ChunkingConfig
	DistanceThreshold float64
	Storage           StorageConfig
	CORS              CORSConfig
	Admin             AdminConfig
	Log               LogConfig
	Environment       Environment
}

const maskedSecret = "****"

// Safe returns a copy of cfg with secret fields masked, suitable for the
// /configz admin endpoint.
func (c Config) Safe() Config {
	safe := c
	if safe.OpenAI.APIKey != "" {
		safe.OpenAI.APIKey = maskedSecret
	}
	if safe.Storage.Password != "" {
		safe.Storage.Password = maskedSecret
	}
	if dsn := safe.Storage.DatabaseURL; dsn != "" {
		safe.Storage.DatabaseURL = maskDSNPassword(dsn)
	}
	return safe
}

// maskDSNPassword replaces a password embedded in a postgres:// DSN with
// the masked placeholder, leaving everything else (host, db, query
// parameters) intact so the masked value is still useful for debugging.
func maskDSNPassword(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	schemeEnd := strings.Index(dsn, "://")
	if at < 0 || schemeEnd < 0 || at < schemeEnd {
		return dsn
	}
	userinfo := dsn[schemeEnd+3 : at]
	colon := strings.Index(userinfo, ":")
	if colon < 0 {
		return dsn
	}
	user := userinfo[:colon]
	return fmt.Sprintf("%s://%s:%s%s", dsn[:schemeEnd], user, maskedSecret, dsn[at:])
}

// Validate enforces the required-field rules. Under
// EnvProduction a missing provider-specific variable fails the load;
// under EnvLocal/EnvTest the caller is expected to rely on the dummy
// provider or to have set what it needs for its own test.
func (c Config) Validate() error {
	switch c.Provider {
	case ProviderOpenAI:
		if c.Environment == EnvProduction && c.OpenAI.APIKey == "" {
			return fmt.Errorf("config: OPENAI_API_KEY is required when PROVIDER=openai in production")
		}
	case ProviderOllama:
		if c.Environment == EnvProduction && c.Ollama.BaseURL == "" {
			return fmt.Errorf("config: OLLAMA_BASE_URL is required when PROVIDER=ollama in production")
		}
	case ProviderDummy:
		// no requirements
	default:
		return fmt.Errorf("config: unrecognized PROVIDER %q (want openai, ollama, or dummy)", c.Provider)
	}

	if c.Chunking.Strategy != StrategySentenceSplitter && c.Chunking.Strategy != StrategyWordOverlap {
		return fmt.Errorf("config: unrecognized CHUNKING_STRATEGY %q (want sentence_splitter or word_overlap)", c.Chunking.Strategy)
	}

	if c.Environment == EnvProduction && c.Storage.DatabaseURL == "" && c.Storage.Host == "" {
		return fmt.Errorf("config: DATABASE_URL or DB host/user/password/db/port is required in production")
	}

	return nil
}
