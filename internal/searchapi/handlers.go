package searchapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"dhosearch/internal/config"
	"dhosearch/internal/storage"
)

const groupSeparator = "\n---\n"

var errEmptyQuery = errors.New("searchapi: query must not be empty")
var errUnauthorized = errors.New("searchapi: unauthorized")

type searchRequest struct {
	Query string `json:"query"`
}

type searchResult struct {
	BookID         int64   `json:"book_id"`
	PDFURL         string  `json:"pdf_url"`
	PDFURLWithPage string  `json:"pdf_url_with_page"`
	Title          string  `json:"titel"`
	Author         string  `json:"forfatter"`
	Page           int     `json:"sidenr"`
	Chunk          string  `json:"chunk"`
	Distance       float64 `json:"distance"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		respondError(w, http.StatusBadRequest, errEmptyQuery)
		return
	}

	ctx := r.Context()
	vec, err := s.provider.Embed(ctx, req.Query)
	if err != nil {
		respondError(w, http.StatusBadGateway, err)
		return
	}

	cfg := s.snapshot.Get()
	rows, err := s.store.Search(ctx, s.provider.TableName(), vec, cfg.DistanceThreshold)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	respondJSON(w, http.StatusOK, groupByBook(rows))
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	cfg := s.snapshot.Get()
	respondJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"service":  "dhosearch",
		"provider": string(cfg.Provider),
	})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	cfg := s.snapshot.Get()
	status := map[string]any{}
	ready := true

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, err := s.store.Search(ctx, s.provider.TableName(), make([]float32, s.provider.Dimension()), 0); err != nil {
		status["storage"] = err.Error()
		ready = false
	} else {
		status["storage"] = "ok"
	}

	switch cfg.Provider {
	case config.ProviderDummy:
		status["provider"] = "ok"
	case config.ProviderOpenAI:
		status["provider"] = "ok"
		status["assumed_provider_ready"] = true
	case config.ProviderOllama:
		if _, err := s.provider.Embed(ctx, "ping"); err != nil {
			status["provider"] = err.Error()
			ready = false
		} else {
			status["provider"] = "ok"
		}
	}

	if !ready {
		respondJSON(w, http.StatusServiceUnavailable, status)
		return
	}
	respondJSON(w, http.StatusOK, status)
}

func (s *Server) handleConfigz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.snapshot.Get().Safe())
}

func (s *Server) handleRefreshConfig(w http.ResponseWriter, r *http.Request) {
	if err := s.snapshot.Refresh(); err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, s.snapshot.Get().Safe())
}

// groupByBook groups rows by book: rows are
// already ordered by ascending distance within the scan, so the first
// row seen per book is its minimum-distance row.
func groupByBook(rows []storage.SearchResult) []searchResult {
	type group struct {
		result searchResult
		chunks []string
	}
	order := make([]int64, 0)
	groups := make(map[int64]*group)

	for _, row := range rows {
		g, ok := groups[row.BookID]
		if !ok {
			g = &group{result: searchResult{
				BookID:         row.BookID,
				PDFURL:         row.URL,
				PDFURLWithPage: withPageFragment(row.URL, row.Page),
				Title:          row.Title,
				Author:         row.Author,
				Page:           row.Page,
				Distance:       row.Distance,
			}}
			groups[row.BookID] = g
			order = append(order, row.BookID)
		}
		g.chunks = append(g.chunks, row.Text)
	}

	out := make([]searchResult, 0, len(order))
	for _, id := range order {
		g := groups[id]
		g.result.Chunk = strings.Join(g.chunks, groupSeparator)
		out = append(out, g.result)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	return out
}

func withPageFragment(url string, page int) string {
	return url + "#page=" + strconv.Itoa(page)
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, map[string]any{"error": err.Error()})
}
