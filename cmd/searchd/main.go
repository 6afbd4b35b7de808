// Command searchd serves the semantic search HTTP API.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"dhosearch/internal/config"
	"dhosearch/internal/embedding"
	"dhosearch/internal/logging"
	"dhosearch/internal/searchapi"
	"dhosearch/internal/storage"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("searchd")
	}
}

func run() error {
	_ = godotenv.Load()

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

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := storage.OpenPool(ctx, cfg.Storage.DatabaseURL, cfg.Storage.MinConns, cfg.Storage.MaxConns)
	if err != nil {
		return fmt.Errorf("open storage pool: %w", err)
	}
	defer pool.Close()

	store := storage.NewPostgresStore(pool, knownTables())
	if err := store.Bootstrap(ctx); err != nil {
		return fmt.Errorf("bootstrap storage: %w", err)
	}

	server := searchapi.NewServer(snapshot, provider, store, log.Logger)

	httpServer := &http.Server{
		Addr:              ":8080",
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", httpServer.Addr).Str("provider", string(cfg.Provider)).Msg("searchd listening")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// knownTables lists every provider table Bootstrap must ensure exists,
// independent of which provider this process is currently configured
// for — a later config refresh or a different process ingesting with
// the other provider must find its table already in place.
func knownTables() []storage.TableSpec {
	return []storage.TableSpec{
		{Name: "chunks", Dimension: 1536},
		{Name: "chunks_nomic", Dimension: 768},
	}
}
