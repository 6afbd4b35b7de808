package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// envReader is a seam for tests so they never touch the real process
// environment or a real .env file.
type envReader func(key string) string

// Load reads configuration from environment variables (optionally from a
// .env file in the current directory). Values already present in the
// process environment win over .env: we only fall back to .env for
// keys that are empty, so an operator's already-exported variables are
// never clobbered.
func Load() (Config, error) {
	_ = godotenv.Load() // best-effort; absence of .env is not an error

	cfg := fromEnv(realEnv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	warnIgnoredChunkSize(cfg, realEnv)
	return cfg, nil
}

// warnIgnoredChunkSize: CHUNK_SIZE has no
// effect on the word_overlap strategy, which windows on a fixed
// geometry. This is a warning, not a validation failure.
func warnIgnoredChunkSize(cfg Config, get envReader) {
	if cfg.Chunking.Strategy == StrategyWordOverlap && get("CHUNK_SIZE") != "" {
		log.Warn().Msg("config: CHUNK_SIZE is set but CHUNKING_STRATEGY=word_overlap ignores it")
	}
}

func realEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func fromEnv(get envReader) Config {
	var cfg Config

	cfg.Provider = ProviderName(strings.ToLower(get("PROVIDER")))
	if cfg.Provider == "" {
		cfg.Provider = ProviderDummy
	}

	cfg.OpenAI.APIKey = get("OPENAI_API_KEY")
	cfg.OpenAI.Model = firstNonEmpty(get("OPENAI_MODEL"), "text-embedding-3-small")

	cfg.Ollama.BaseURL = get("OLLAMA_BASE_URL")
	cfg.Ollama.Model = firstNonEmpty(get("OLLAMA_MODEL"), "nomic-embed-text")

	cfg.Chunking.Strategy = ChunkingStrategyName(strings.ToLower(get("CHUNKING_STRATEGY")))
	if cfg.Chunking.Strategy == "" {
		cfg.Chunking.Strategy = StrategySentenceSplitter
	}
	cfg.Chunking.ChunkSize = parseIntDefault(get("CHUNK_SIZE"), 500)

	cfg.Embedding.Timeout = parseIntDefault(get("EMBEDDING_TIMEOUT"), 30)
	cfg.Embedding.MaxRetries = parseIntDefault(get("EMBEDDING_MAX_RETRIES"), 3)
	cfg.Embedding.RetryBackoff = parseIntDefault(get("EMBEDDING_RETRY_BACKOFF"), 1)

	cfg.DistanceThreshold = parseFloatDefault(get("DISTANCE_THRESHOLD"), 0.5)

	cfg.Storage.DatabaseURL = firstNonEmpty(get("DATABASE_URL"), get("DB_URL"))
	cfg.Storage.Host = get("DB_HOST")
	cfg.Storage.Port = firstNonEmpty(get("DB_PORT"), "5432")
	cfg.Storage.User = get("DB_USER")
	cfg.Storage.Password = get("DB_PASSWORD")
	cfg.Storage.Database = get("DB_NAME")
	cfg.Storage.MinConns = int32(parseIntDefault(get("DB_MIN_CONNS"), 1))
	cfg.Storage.MaxConns = int32(parseIntDefault(get("DB_MAX_CONNS"), 10))

	if origins := get("TILLADTE_KALDERE"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			o = strings.TrimSpace(o)
			if o != "" {
				cfg.CORS.AllowedOrigins = append(cfg.CORS.AllowedOrigins, o)
			}
		}
	}

	cfg.Admin.Enabled = parseBool(get("ADMIN_ENABLED"))
	cfg.Admin.Token = get("ADMIN_TOKEN")
	cfg.Admin.AllowView = parseBool(get("ADMIN_ALLOW_VIEW"))

	cfg.Log.Level = firstNonEmpty(strings.ToLower(get("LOG_LEVEL")), "info")
	cfg.Log.Format = firstNonEmpty(strings.ToLower(get("LOG_FORMAT")), "json")

	cfg.Environment = Environment(strings.ToLower(get("ENVIRONMENT")))
	if cfg.Environment == "" {
		cfg.Environment = EnvLocal
	}

	return cfg
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func parseFloatDefault(s string, def float64) float64 {
	if s == "" {
		return def
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return f
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "1" || s == "true" || s == "yes"
}
