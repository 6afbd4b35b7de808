package ingestion

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dhosearch/internal/chunking"
	"dhosearch/internal/config"
	"dhosearch/internal/pdfextract"
	"dhosearch/internal/storage"
)

type fakeFetcher struct {
	doc pdfextract.Document
	err error
}

func (f fakeFetcher) FetchAndParse(ctx context.Context, url string) (pdfextract.Document, error) {
	return f.doc, f.err
}

type fakeProvider struct {
	dim        int
	alwaysFail bool
	calls      int
}

func (p *fakeProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	p.calls++
	if p.alwaysFail {
		return nil, fmt.Errorf("embedding exhausted")
	}
	return make([]float32, p.dim), nil
}
func (p *fakeProvider) TableName() string { return "chunks" }
func (p *fakeProvider) Dimension() int    { return p.dim }
func (p *fakeProvider) Name() string      { return "fake" }

type fakeStore struct {
	hasEmbeddings bool
	hasErr        error
	saved         *storage.BookInput
	saveErr       error
	savedBookID   int64
}

func (s *fakeStore) Bootstrap(ctx context.Context) error { return nil }
func (s *fakeStore) FindBookByURL(ctx context.Context, url string) (int64, bool, error) {
	return 0, false, nil
}
func (s *fakeStore) CreateBook(ctx context.Context, url, title, author string, pages int, collection string) (int64, error) {
	return 0, nil
}
func (s *fakeStore) GetOrCreateBook(ctx context.Context, url, title, author string, pages int, collection string) (int64, error) {
	return 0, nil
}
func (s *fakeStore) BookHasEmbeddingsForProvider(ctx context.Context, url, providerTable string) (bool, error) {
	return s.hasEmbeddings, s.hasErr
}
func (s *fakeStore) SaveBookWithChunks(ctx context.Context, book storage.BookInput, providerTable string) (int64, error) {
	if s.saveErr != nil {
		return 0, s.saveErr
	}
	s.saved = &book
	s.savedBookID = 42
	return s.savedBookID, nil
}
func (s *fakeStore) Search(ctx context.Context, providerTable string, queryVector []float32, threshold float64) ([]storage.SearchResult, error) {
	return nil, nil
}
func (s *fakeStore) Close() {}

func testPipeline(fetcher DocumentFetcher, provider *fakeProvider, store *fakeStore) *Pipeline {
	return &Pipeline{
		Fetcher:  fetcher,
		Strategy: chunking.SentenceSplitter{},
		Provider: provider,
		Store:    store,
		Chunking: config.ChunkingConfig{ChunkSize: 50},
		Log:      zerolog.Nop(),
	}
}

func TestProcessBook_SkipsWhenAlreadyIndexed(t *testing.T) {
	store := &fakeStore{hasEmbeddings: true}
	p := testPipeline(fakeFetcher{}, &fakeProvider{dim: 4}, store)

	outcome, err := p.ProcessBook(context.Background(), "http://example.com/book.pdf")
	require.NoError(t, err)
	assert.True(t, outcome.Skipped)
	assert.Nil(t, store.saved)
}

func TestProcessBook_HappyPath(t *testing.T) {
	doc := pdfextract.Document{
		Pages:     map[int]string{1: "skip me.", 2: "Page two has a sentence. And another one."},
		Title:     "T",
		Author:    "A",
		PageCount: 2,
	}
	store := &fakeStore{}
	provider := &fakeProvider{dim: 4}
	p := testPipeline(fakeFetcher{doc: doc}, provider, store)

	outcome, err := p.ProcessBook(context.Background(), "http://example.com/book.pdf")
	require.NoError(t, err)
	assert.False(t, outcome.Skipped)
	assert.Equal(t, int64(42), outcome.BookID)
	require.NotNil(t, store.saved)
	for _, c := range store.saved.Chunks {
		assert.NotEqual(t, 1, c.Page, "page 1 must be skipped for multi-page documents")
	}
}

func TestProcessBook_FetchErrorAborts(t *testing.T) {
	store := &fakeStore{}
	p := testPipeline(fakeFetcher{err: fmt.Errorf("network down")}, &fakeProvider{dim: 4}, store)

	_, err := p.ProcessBook(context.Background(), "http://example.com/book.pdf")
	require.Error(t, err)
	assert.Nil(t, store.saved)
}

func TestProcessBook_EmbeddingFailureAbortsWholeBook(t *testing.T) {
	doc := pdfextract.Document{
		Pages:     map[int]string{1: "Only one sentence here. Another sentence follows too."},
		Title:     "T",
		Author:    "A",
		PageCount: 1,
	}
	store := &fakeStore{}
	provider := &fakeProvider{dim: 4, alwaysFail: true}
	p := testPipeline(fakeFetcher{doc: doc}, provider, store)

	_, err := p.ProcessBook(context.Background(), "http://example.com/book.pdf")
	require.Error(t, err)
	assert.Nil(t, store.saved)
}
