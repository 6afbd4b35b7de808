// Command ingest batch-processes a list of PDF URLs into the search
// index: one URL per line, exit code 0 regardless of
// per-book failures, non-zero only on collaborator setup failure.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"dhosearch/internal/chunking"
	"dhosearch/internal/config"
	"dhosearch/internal/embedding"
	"dhosearch/internal/ingestion"
	"dhosearch/internal/logging"
	"dhosearch/internal/orchestrator"
	"dhosearch/internal/pdfextract"
	"dhosearch/internal/storage"
)

var (
	concurrency int
	statusPath  string
	failedPath  string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatal().Err(err).Msg("ingest")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest [url-list-file]",
		Short: "Ingest a list of PDF URLs into the search index",
		Args:  cobra.ExactArgs(1),
		RunE:  runIngest,
	}
	cmd.Flags().IntVar(&concurrency, "concurrency", 5, "number of books to process concurrently")
	cmd.Flags().StringVar(&statusPath, "status-file", "processing_status.json", "path to write run status")
	cmd.Flags().StringVar(&failedPath, "failed-file", "failed_books.json", "path to write failed-book report")
	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	urls, err := readURLList(args[0])
	if err != nil {
		return fmt.Errorf("read url list: %w", err)
	}

	snapshot, err := config.NewSnapshot()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg := snapshot.Get()
	logging.Init(cfg.Log.Level, cfg.Log.Format)

	provider, err := embedding.FromConfig(cfg)
	if err != nil {
		return fmt.Errorf("construct embedding provider: %w", err)
	}

	strategy, err := chunking.FromConfig(cfg.Chunking)
	if err != nil {
		return fmt.Errorf("construct chunking strategy: %w", err)
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := storage.OpenPool(ctx, cfg.Storage.DatabaseURL, cfg.Storage.MinConns, cfg.Storage.MaxConns)
	if err != nil {
		return fmt.Errorf("open storage pool: %w", err)
	}
	defer pool.Close()

	store := storage.NewPostgresStore(pool, []storage.TableSpec{
		{Name: "chunks", Dimension: 1536},
		{Name: "chunks_nomic", Dimension: 768},
	})
	if err := store.Bootstrap(ctx); err != nil {
		return fmt.Errorf("bootstrap storage: %w", err)
	}

	pipeline := &ingestion.Pipeline{
		Fetcher:  pdfextract.NewFetcher(&http.Client{Timeout: 60 * time.Second}),
		Strategy: strategy,
		Provider: provider,
		Store:    store,
		Chunking: cfg.Chunking,
		Log:      log.Logger,
	}

	runID := uuid.NewString()
	tracker := newStatusTracker(statusPath, runID, len(urls), string(cfg.Provider), providerModel(cfg))
	tracker.writeRunning()

	orch := &orchestrator.Orchestrator{
		Pipeline: pipeline,
		Log:      log.Logger,
		OnProgress: func(processed, failed, total int) {
			tracker.update(processed, failed)
		},
	}

	result := orch.Run(ctx, urls, concurrency)
	tracker.writeDone(result)

	if len(result.FailedBooks) > 0 {
		if err := writeJSONFile(failedPath, result.FailedBooks); err != nil {
			log.Error().Err(err).Str("path", failedPath).Msg("write failed-book report failed")
		}
	}

	log.Info().
		Int("total", result.Total).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Str("run_id", runID).
		Msg("ingest run complete")
	return nil
}

// readURLList reads one URL per line, skipping blank lines.
func readURLList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if trimmed := strings.TrimSpace(scanner.Text()); trimmed != "" {
			urls = append(urls, trimmed)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return urls, nil
}

func providerModel(cfg config.Config) string {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return cfg.OpenAI.Model
	case config.ProviderOllama:
		return cfg.Ollama.Model
	default:
		return "dummy"
	}
}

// processingStatus mirrors the JSON document a caller can poll
// written incrementally over the course of a run.
type processingStatus struct {
	RunID          string    `json:"run_id"`
	Status         string    `json:"status"`
	TotalBooks     int       `json:"total_books"`
	Processed      int       `json:"processed"`
	Failed         int       `json:"failed"`
	LastUpdated    time.Time `json:"last_updated"`
	EmbeddingModel string    `json:"embedding_model"`
	Provider       string    `json:"provider"`
}

// statusTracker serializes writes to the status file behind a mutex;
// the orchestrator calls update via OnProgress from its result-collecting
// loop, one call per processed URL.
type statusTracker struct {
	mu   sync.Mutex
	path string
	doc  processingStatus
}

func newStatusTracker(path, runID string, total int, provider, model string) *statusTracker {
	return &statusTracker{
		path: path,
		doc: processingStatus{
			RunID:          runID,
			TotalBooks:     total,
			Provider:       provider,
			EmbeddingModel: model,
		},
	}
}

func (t *statusTracker) writeRunning() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.doc.Status = "running"
	t.doc.LastUpdated = time.Now().UTC()
	t.flush()
}

func (t *statusTracker) update(processed, failed int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.doc.Processed = processed
	t.doc.Failed = failed
	t.doc.LastUpdated = time.Now().UTC()
	t.flush()
}

func (t *statusTracker) writeDone(result orchestrator.Result) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.doc.Status = "done"
	t.doc.Processed = result.Total
	t.doc.Failed = result.Failed
	t.doc.LastUpdated = time.Now().UTC()
	t.flush()
}

// flush writes the status document best-effort: a failed status write
// must never abort an otherwise-successful ingestion run.
func (t *statusTracker) flush() {
	if err := writeJSONFile(t.path, t.doc); err != nil {
		log.Warn().Err(err).Str("path", t.path).Msg("write processing status failed")
	}
}

func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
