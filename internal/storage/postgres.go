package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// TableSpec binds a provider's chunk table to its fixed vector width.
type TableSpec struct {
	Name      string
	Dimension int
}

// PostgresStore is the pgx/pgvector-backed Store implementation. Every
// method acquires its own connection from the pool — no connection is
// shared across concurrent callers, per the orchestrator's concurrency
// contract.
type PostgresStore struct {
	pool   *pgxpool.Pool
	tables []TableSpec
}

// NewPostgresStore wraps an already-connected pool. tables lists every
// provider chunk table Bootstrap must ensure exists.
func NewPostgresStore(pool *pgxpool.Pool, tables []TableSpec) *PostgresStore {
	return &PostgresStore{pool: pool, tables: tables}
}

// OpenPool parses dsn and opens a pool bounded by [minConns, maxConns],
// pinging once before returning so callers fail fast on a bad DSN.
func OpenPool(ctx context.Context, dsn string, minConns, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: parse DSN: %w", err)
	}
	if minConns > 0 {
		cfg.MinConns = minConns
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("storage: open pool: %w", err)
	}

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("storage: ping: %w", err)
	}
	return pool, nil
}

func (s *PostgresStore) Close() { s.pool.Close() }

// Bootstrap enables pgvector, creates the books table and every
// registered provider table, and adds an IVFFlat cosine index to each
// chunk table. All statements are idempotent.
func (s *PostgresStore) Bootstrap(ctx context.Context) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("storage: bootstrap acquire: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("storage: enable vector extension: %w", err)
	}

	if _, err := conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS books (
			id SERIAL PRIMARY KEY,
			pdf_url TEXT UNIQUE NOT NULL,
			title TEXT NOT NULL,
			author TEXT NOT NULL,
			pages INT NOT NULL,
			samling TEXT NOT NULL DEFAULT '',
			created_datetime TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`); err != nil {
		return fmt.Errorf("storage: create books table: %w", err)
	}

	for _, t := range s.tables {
		createQuery := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id BIGSERIAL PRIMARY KEY,
				book_id INT NOT NULL REFERENCES books(id),
				sidenr INT NOT NULL,
				chunk TEXT NOT NULL,
				embedding vector(%d) NOT NULL,
				provider TEXT NOT NULL,
				model TEXT NOT NULL,
				created_datetime TIMESTAMPTZ NOT NULL DEFAULT now()
			)
		`, pgx.Identifier{t.Name}.Sanitize(), t.Dimension)
		if _, err := conn.Exec(ctx, createQuery); err != nil {
			return fmt.Errorf("storage: create table %s: %w", t.Name, err)
		}

		indexQuery := fmt.Sprintf(
			`CREATE INDEX IF NOT EXISTS %s_embedding_idx ON %s USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100)`,
			t.Name, pgx.Identifier{t.Name}.Sanitize(),
		)
		if _, err := conn.Exec(ctx, indexQuery); err != nil {
			return fmt.Errorf("storage: create index on %s: %w", t.Name, err)
		}
	}
	return nil
}

func (s *PostgresStore) FindBookByURL(ctx context.Context, url string) (int64, bool, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return 0, false, fmt.Errorf("storage: acquire: %w", err)
	}
	defer conn.Release()

	var id int64
	err = conn.QueryRow(ctx, `SELECT id FROM books WHERE pdf_url = $1`, url).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("storage: find book by url: %w", err)
	}
	return id, true, nil
}

func (s *PostgresStore) CreateBook(ctx context.Context, url, title, author string, pages int, collection string) (int64, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("storage: acquire: %w", err)
	}
	defer conn.Release()

	var id int64
	err = conn.QueryRow(ctx, `
		INSERT INTO books (pdf_url, title, author, pages, samling)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, url, title, author, pages, collection).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrBookExists
		}
		return 0, fmt.Errorf("storage: create book: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) GetOrCreateBook(ctx context.Context, url, title, author string, pages int, collection string) (int64, error) {
	if id, found, err := s.FindBookByURL(ctx, url); err != nil {
		return 0, err
	} else if found {
		return id, nil
	}

	if title == "" || author == "" || pages <= 0 {
		return 0, fmt.Errorf("%w: title=%q author=%q pages=%d", ErrInvalidBook, title, author, pages)
	}

	id, err := s.CreateBook(ctx, url, title, author, pages, collection)
	if errors.Is(err, ErrBookExists) {
		// Lost a create race against another worker; the row now exists.
		if existingID, found, findErr := s.FindBookByURL(ctx, url); findErr == nil && found {
			return existingID, nil
		}
	}
	return id, err
}

func (s *PostgresStore) BookHasEmbeddingsForProvider(ctx context.Context, url, providerTable string) (bool, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("storage: acquire: %w", err)
	}
	defer conn.Release()

	query := fmt.Sprintf(`
		SELECT EXISTS (
			SELECT 1 FROM %s c JOIN books b ON b.id = c.book_id WHERE b.pdf_url = $1
		)
	`, pgx.Identifier{providerTable}.Sanitize())

	var exists bool
	if err := conn.QueryRow(ctx, query, url).Scan(&exists); err != nil {
		return false, fmt.Errorf("storage: check embeddings for provider: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) SaveBookWithChunks(ctx context.Context, book BookInput, providerTable string) (int64, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("storage: acquire: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("storage: begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var bookID int64
	err = tx.QueryRow(ctx, `SELECT id FROM books WHERE pdf_url = $1`, book.URL).Scan(&bookID)
	if errors.Is(err, pgx.ErrNoRows) {
		if book.Title == "" || book.Author == "" || book.Pages <= 0 {
			return 0, fmt.Errorf("%w: title=%q author=%q pages=%d", ErrInvalidBook, book.Title, book.Author, book.Pages)
		}
		err = tx.QueryRow(ctx, `
			INSERT INTO books (pdf_url, title, author, pages, samling)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`, book.URL, book.Title, book.Author, book.Pages, book.Collection).Scan(&bookID)
	}
	if err != nil {
		return 0, fmt.Errorf("storage: resolve book: %w", err)
	}

	insertQuery := fmt.Sprintf(`
		INSERT INTO %s (book_id, sidenr, chunk, embedding, provider, model)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, pgx.Identifier{providerTable}.Sanitize())

	for _, c := range book.Chunks {
		if _, err := tx.Exec(ctx, insertQuery, bookID, c.Page, c.Text, pgvector.NewVector(c.Vector), book.Provider, book.Model); err != nil {
			return 0, fmt.Errorf("storage: insert chunk (page %d): %w", c.Page, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("storage: commit: %w", err)
	}
	return bookID, nil
}

func (s *PostgresStore) Search(ctx context.Context, providerTable string, queryVector []float32, threshold float64) ([]SearchResult, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage: acquire: %w", err)
	}
	defer conn.Release()

	query := fmt.Sprintf(`
		SELECT b.id, b.pdf_url, b.title, b.author, c.sidenr, c.chunk, c.embedding <=> $1 AS distance
		FROM %s c
		JOIN books b ON b.id = c.book_id
		WHERE c.embedding <=> $1 < $2
		ORDER BY distance ASC
	`, pgx.Identifier{providerTable}.Sanitize())

	rows, err := conn.Query(ctx, query, pgvector.NewVector(queryVector), threshold)
	if err != nil {
		return nil, fmt.Errorf("storage: search: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.BookID, &r.URL, &r.Title, &r.Author, &r.Page, &r.Text, &r.Distance); err != nil {
			return nil, fmt.Errorf("storage: scan search row: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: search rows: %w", err)
	}
	return results, nil
}
