package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// CORS allows browser clients to send the api key header cross-origin.
func CORS(origins []string, apiKeyHeader string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	if apiKeyHeader == "" {
		apiKeyHeader = DefaultAPIKeyHeader
	}

	handler := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{apiKeyHeader, "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Content-Disposition", "Content-Length", "X-Request-ID"},
		MaxAge:           3600,
		AllowCredentials: false,
	})

	return handler.Handler
}
