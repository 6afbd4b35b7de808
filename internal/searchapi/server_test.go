package searchapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dhosearch/internal/config"
	"dhosearch/internal/storage"
)

type stubProvider struct {
	vec      []float32
	embedErr error
	dim      int
	name     config.ProviderName
}

func (p stubProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if p.embedErr != nil {
		return nil, p.embedErr
	}
	return p.vec, nil
}
func (p stubProvider) TableName() string { return "chunks" }
func (p stubProvider) Dimension() int    { return p.dim }
func (p stubProvider) Name() string      { return string(p.name) }

type stubStore struct {
	rows      []storage.SearchResult
	searchErr error
}

func (s stubStore) Bootstrap(ctx context.Context) error { return nil }
func (s stubStore) FindBookByURL(ctx context.Context, url string) (int64, bool, error) {
	return 0, false, nil
}
func (s stubStore) CreateBook(ctx context.Context, url, title, author string, pages int, collection string) (int64, error) {
	return 0, nil
}
func (s stubStore) GetOrCreateBook(ctx context.Context, url, title, author string, pages int, collection string) (int64, error) {
	return 0, nil
}
func (s stubStore) BookHasEmbeddingsForProvider(ctx context.Context, url, providerTable string) (bool, error) {
	return false, nil
}
func (s stubStore) SaveBookWithChunks(ctx context.Context, book storage.BookInput, providerTable string) (int64, error) {
	return 0, nil
}
func (s stubStore) Search(ctx context.Context, providerTable string, queryVector []float32, threshold float64) ([]storage.SearchResult, error) {
	return s.rows, s.searchErr
}
func (s stubStore) Close() {}

func newTestServer(cfg config.Config, provider stubProvider, store stubStore) *Server {
	return NewServer(config.NewSnapshotFrom(cfg), provider, store, zerolog.Nop())
}

func TestHandleSearch_GroupsRowsByBookAndSortsByDistance(t *testing.T) {
	store := stubStore{rows: []storage.SearchResult{
		{BookID: 1, URL: "http://x/a.pdf", Title: "A", Author: "AA", Page: 3, Text: "chunk1", Distance: 0.2},
		{BookID: 1, URL: "http://x/a.pdf", Title: "A", Author: "AA", Page: 5, Text: "chunk2", Distance: 0.4},
		{BookID: 2, URL: "http://x/b.pdf", Title: "B", Author: "BB", Page: 1, Text: "chunk3", Distance: 0.1},
	}}
	srv := newTestServer(config.Config{DistanceThreshold: 0.99}, stubProvider{vec: []float32{1, 2}, dim: 2}, store)

	req := httptest.NewRequest(http.MethodPost, "/search", bytes.NewBufferString(`{"query":"hello"}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var results []searchResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&results))
	require.Len(t, results, 2)
	assert.Equal(t, int64(2), results[0].BookID, "lowest-distance book must be first")
	assert.Equal(t, int64(1), results[1].BookID)
	assert.Equal(t, "chunk1\n---\nchunk2", results[1].Chunk)
	assert.Equal(t, 3, results[1].Page, "page must be the lowest-distance row's page")
	assert.Equal(t, "http://x/a.pdf#page=3", results[1].PDFURLWithPage)
	assert.Equal(t, "http://x/a.pdf", results[1].PDFURL)
}

func TestHandleSearch_EmptyQueryRejected(t *testing.T) {
	srv := newTestServer(config.Config{}, stubProvider{}, stubStore{})

	req := httptest.NewRequest(http.MethodPost, "/search", bytes.NewBufferString(`{"query":""}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleHealthz_NeverTouchesStorage(t *testing.T) {
	srv := newTestServer(config.Config{Provider: config.ProviderDummy}, stubProvider{}, stubStore{searchErr: assert.AnError})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleReadyz_ReturnsUnavailableOnStorageError(t *testing.T) {
	srv := newTestServer(config.Config{Provider: config.ProviderDummy}, stubProvider{}, stubStore{searchErr: assert.AnError})

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestConfigz_HiddenWhenAdminDisabled(t *testing.T) {
	srv := newTestServer(config.Config{Admin: config.AdminConfig{Enabled: false}}, stubProvider{}, stubStore{})

	req := httptest.NewRequest(http.MethodGet, "/configz", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConfigz_UnauthorizedWithoutToken(t *testing.T) {
	srv := newTestServer(config.Config{Admin: config.AdminConfig{Enabled: true, Token: "secret"}}, stubProvider{}, stubStore{})

	req := httptest.NewRequest(http.MethodGet, "/configz", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestConfigz_AuthorizedReturnsMaskedConfig(t *testing.T) {
	srv := newTestServer(config.Config{
		Admin:  config.AdminConfig{Enabled: true, Token: "secret"},
		OpenAI: config.OpenAIConfig{APIKey: "sk-real-key"},
	}, stubProvider{}, stubStore{})

	req := httptest.NewRequest(http.MethodGet, "/configz", nil)
	req.Header.Set("x-admin-token", "secret")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "sk-real-key")
}

func TestConfigz_BearerTokenAccepted(t *testing.T) {
	srv := newTestServer(config.Config{Admin: config.AdminConfig{Enabled: true, Token: "secret"}}, stubProvider{}, stubStore{})

	req := httptest.NewRequest(http.MethodGet, "/configz", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORS_PreflightHandled(t *testing.T) {
	srv := newTestServer(config.Config{CORS: config.CORSConfig{AllowedOrigins: []string{"https://example.com"}}}, stubProvider{}, stubStore{})

	req := httptest.NewRequest(http.MethodOptions, "/search", nil)
	req.Header.Set("Origin", "https://example.com")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}
