// Package storage persists books and provider-partitioned chunk rows in
// PostgreSQL with pgvector, and answers the vector-similarity scan the
// search service runs against them.
package storage

import (
	"context"
	"errors"
)

// ErrBookExists is returned by CreateBook when the URL is already indexed.
var ErrBookExists = errors.New("storage: book URL already exists")

// ErrInvalidBook is returned by GetOrCreateBook when a new book's
// metadata fails validation (empty title/author, pages <= 0).
var ErrInvalidBook = errors.New("storage: invalid book metadata")

// ChunkInput is one chunk+embedding pair awaiting insertion.
type ChunkInput struct {
	Page   int
	Text   string
	Vector []float32
}

// BookInput describes a book plus the chunks to persist alongside it in
// a single provider table.
type BookInput struct {
	URL        string
	Title      string
	Author     string
	Pages      int
	Collection string
	Chunks     []ChunkInput
	Provider   string
	Model      string
}

// SearchResult is one row returned by a vector-distance scan, still at
// chunk granularity — the search service groups these by book.
type SearchResult struct {
	BookID   int64
	URL      string
	Title    string
	Author   string
	Page     int
	Text     string
	Distance float64
}

// Store is the full persistence contract the ingestion pipeline and
// search service depend on. PostgresStore is the only implementation;
// the interface exists so tests can substitute a fake.
type Store interface {
	// Bootstrap ensures the vector extension, the books table, and
	// every known provider's chunk table (with its ANN index) exist.
	// Idempotent.
	Bootstrap(ctx context.Context) error

	// FindBookByURL returns the book's ID, or (0, false) if no book
	// with that URL exists.
	FindBookByURL(ctx context.Context, url string) (int64, bool, error)

	// CreateBook inserts a new book row. Returns ErrBookExists if the
	// URL is already present.
	CreateBook(ctx context.Context, url, title, author string, pages int, collection string) (int64, error)

	// GetOrCreateBook returns the existing book's ID if url is already
	// indexed; otherwise validates and creates it. Returns
	// ErrInvalidBook if creation is needed but metadata is invalid.
	GetOrCreateBook(ctx context.Context, url, title, author string, pages int, collection string) (int64, error)

	// BookHasEmbeddingsForProvider reports whether at least one row for
	// this book exists in providerTable.
	BookHasEmbeddingsForProvider(ctx context.Context, url, providerTable string) (bool, error)

	// SaveBookWithChunks gets-or-creates the book, then inserts every
	// chunk into providerTable within a single transaction. No partial
	// rows remain on failure.
	SaveBookWithChunks(ctx context.Context, book BookInput, providerTable string) (int64, error)

	// Search returns every row in providerTable with cosine distance
	// strictly less than threshold, ordered by ascending distance.
	Search(ctx context.Context, providerTable string, queryVector []float32, threshold float64) ([]SearchResult, error)

	// Close releases pooled connections.
	Close()
}
