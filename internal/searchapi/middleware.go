package searchapi

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// withCORS applies the configured allowed-origins list to every
// response and answers preflight requests directly. No third-party
// CORS middleware exists anywhere in the retrieved pack, so this is
// implemented directly against net/http.
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && originAllowed(s.snapshot.Get().CORS.AllowedOrigins, origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, x-admin-token")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func originAllowed(allowed []string, origin string) bool {
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}

// requireAdmin gates handler behind admin auth: when
// admin is disabled the endpoint's existence is hidden behind a 404;
// when enabled, a missing/incorrect token yields 401.
func (s *Server) requireAdmin(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg := s.snapshot.Get()
		if !cfg.Admin.Enabled {
			http.NotFound(w, r)
			return
		}
		if !validAdminToken(r, cfg.Admin.Token) {
			respondError(w, http.StatusUnauthorized, errUnauthorized)
			return
		}
		handler(w, r)
	}
}

func validAdminToken(r *http.Request, want string) bool {
	if want == "" {
		return false
	}
	got := r.Header.Get("x-admin-token")
	if got == "" {
		if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			got = strings.TrimPrefix(auth, "Bearer ")
		}
	}
	if got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
