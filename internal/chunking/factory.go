package chunking

import (
	"fmt"

	"dhosearch/internal/config"
)

// FromConfig is the single place that inspects the CHUNKING_STRATEGY
// string, returning the Strategy it selects.
func FromConfig(cfg config.ChunkingConfig) (Strategy, error) {
	switch cfg.Strategy {
	case config.StrategySentenceSplitter:
		return SentenceSplitter{}, nil
	case config.StrategyWordOverlap:
		return WordOverlap{}, nil
	default:
		return nil, fmt.Errorf("chunking: unrecognized strategy %q", cfg.Strategy)
	}
}
