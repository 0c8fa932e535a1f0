package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/campusprint/campusprint-backend/pkg/config"
)

// TokenHeader mirrors the freshly minted access token on login and refresh.
const TokenHeader = "X-CP-Token"

// CORS returns middleware that applies the API's allowed origin policy.
func CORS(cfg config.CORSConfig) func(http.Handler) http.Handler {
	maxAge := cfg.MaxAgeSeconds
	if maxAge <= 0 {
		maxAge = 300
	}
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", TokenHeader, "Idempotency-Key", "X-Requested-With"},
		ExposedHeaders:   []string{TokenHeader},
		AllowCredentials: !allowsAny(origins),
		MaxAge:           maxAge,
	}).Handler
}

func allowsAny(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
