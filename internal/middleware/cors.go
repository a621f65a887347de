package middleware

import (
	"net/http"
	"strings"
)

var defaultOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
}

// CORS allows browser clients from the local dev servers and origins.
func CORS(origins []string, next http.Handler) http.Handler {
	allowed := make(map[string]bool, len(defaultOrigins)+len(origins))
	for _, o := range append(defaultOrigins, origins...) {
		if o = strings.TrimSpace(o); o != "" {
			allowed[o] = true
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowed[origin] || allowed["*"] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+RequestIDHeader)
			w.Header().Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
