// Package ingestion implements the per-book processing steps: fetch,
// parse, chunk, embed, and persist a single PDF.
package ingestion

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"dhosearch/internal/chunking"
	"dhosearch/internal/config"
	"dhosearch/internal/embedding"
	"dhosearch/internal/pdfextract"
	"dhosearch/internal/storage"
)

// Outcome reports what ProcessBook did, for the orchestrator's
// aggregate counts.
type Outcome struct {
	URL     string
	Skipped bool
	BookID  int64
	Chunks  int
}

// DocumentFetcher is the subset of *pdfextract.Fetcher the pipeline
// depends on, narrowed to an interface so tests can stub the network.
type DocumentFetcher interface {
	FetchAndParse(ctx context.Context, url string) (pdfextract.Document, error)
}

// Pipeline owns the collaborators a single book's processing needs.
// It holds no per-book state, so one Pipeline is shared and called
// concurrently by every orchestrator worker.
type Pipeline struct {
	Fetcher  DocumentFetcher
	Strategy chunking.Strategy
	Provider embedding.Provider
	Store    storage.Store
	Chunking config.ChunkingConfig
	Log      zerolog.Logger
}

// ProcessBook fetches, chunks, embeds, and persists a single URL.
func (p *Pipeline) ProcessBook(ctx context.Context, url string) (Outcome, error) {
	already, err := p.Store.BookHasEmbeddingsForProvider(ctx, url, p.Provider.TableName())
	if err != nil {
		return Outcome{}, fmt.Errorf("ingestion: idempotency check for %s: %w", url, err)
	}
	if already {
		p.Log.Info().Str("url", url).Msg("skipped: already indexed for provider")
		return Outcome{URL: url, Skipped: true}, nil
	}

	doc, err := p.Fetcher.FetchAndParse(ctx, url)
	if err != nil {
		return Outcome{}, err
	}

	pages := doc.Pages
	if doc.PageCount > 1 {
		pages = chunking.SkipFirstPage(pages)
	}

	chunks, err := p.Strategy.Chunk(pages, p.Chunking.ChunkSize, doc.Title)
	if err != nil {
		return Outcome{}, fmt.Errorf("ingestion: chunk %s: %w", url, err)
	}

	inputs := make([]storage.ChunkInput, 0, len(chunks))
	for _, c := range chunks {
		vec, err := p.Provider.Embed(ctx, c.Text)
		if err != nil {
			return Outcome{}, fmt.Errorf("ingestion: embed chunk (page %d) of %s: %w", c.Page, url, err)
		}
		inputs = append(inputs, storage.ChunkInput{Page: c.Page, Text: c.Text, Vector: vec})
	}

	bookID, err := p.Store.SaveBookWithChunks(ctx, storage.BookInput{
		URL:      url,
		Title:    doc.Title,
		Author:   doc.Author,
		Pages:    doc.PageCount,
		Chunks:   inputs,
		Provider: p.Provider.Name(),
		Model:    p.Provider.Name(),
	}, p.Provider.TableName())
	if err != nil {
		return Outcome{}, fmt.Errorf("ingestion: persist %s: %w", url, err)
	}

	p.Log.Info().Str("url", url).Int("chunks", len(inputs)).Msg("ingested")
	return Outcome{URL: url, BookID: bookID, Chunks: len(inputs)}, nil
}
