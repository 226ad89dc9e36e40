package utils

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// ExposedHeaders lists the response headers a cross-origin client is allowed
// to read. Without these, range metadata is invisible to browser JS.
const ExposedHeaders = "Content-Type, Accept-Ranges, Content-Length, Content-Range, Content-Encoding"

// corsMiddleware allows credentialed cross-origin requests from the
// configured origins only.
func corsMiddleware(allowedOrigins []string) mux.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if origin := r.Header.Get("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Credentials", "true")
					w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
					w.Header().Set("Access-Control-Allow-Headers", "Authorization, Range, Content-Type")
					w.Header().Set("Access-Control-Expose-Headers", ExposedHeaders)
					w.Header().Add("Vary", "Origin")
				}
			}

			// Handle preflight requests
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// requestIDMiddleware tags every request with an X-Request-Id for log
// correlation, keeping a client-provided one when present.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r)
	})
}

// NewRouter constructs the base mux router with common middleware and routes.
func NewRouter(allowedOrigins []string) *mux.Router {
	r := mux.NewRouter()

	r.Use(requestIDMiddleware)
	r.Use(corsMiddleware(allowedOrigins))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)
	return r
}
