// Package searchapi exposes the HTTP search endpoint and its
// supporting liveness, readiness, and admin routes.
package searchapi

import (
	"net/http"

	"github.com/rs/zerolog"

	"dhosearch/internal/config"
	"dhosearch/internal/embedding"
	"dhosearch/internal/storage"
)

// Server wires the search-facing HTTP surface to its collaborators.
type Server struct {
	snapshot *config.Snapshot
	provider embedding.Provider
	store    storage.Store
	log      zerolog.Logger
	mux      *http.ServeMux
}

// NewServer constructs a Server and registers its routes.
func NewServer(snapshot *config.Snapshot, provider embedding.Provider, store storage.Store, log zerolog.Logger) *Server {
	s := &Server{snapshot: snapshot, provider: provider, store: store, log: log, mux: http.NewServeMux()}
	s.registerRoutes()
	return s
}

// ServeHTTP satisfies http.Handler, applying CORS before dispatch.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.withCORS(s.mux).ServeHTTP(w, r)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("POST /search", s.handleSearch)
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.HandleFunc("GET /readyz", s.handleReadyz)
	s.mux.HandleFunc("GET /configz", s.requireAdmin(s.handleConfigz))
	s.mux.HandleFunc("POST /admin/refresh-config", s.requireAdmin(s.handleRefreshConfig))
}
