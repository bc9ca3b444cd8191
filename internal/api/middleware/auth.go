package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/genbridge/genbridge/internal/api/shared"
)

// apiKeyHeader carries the shared secret for the internal API surface.
const apiKeyHeader = "X-API-Key"

// RequireAPIKey guards a route group with a shared-secret header check.
// The comparison is constant-time.
func RequireAPIKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := r.Header.Get(apiKeyHeader)
			if presented == "" {
				shared.RespondWithError(w, r, http.StatusUnauthorized, "Missing API key")
				return
			}

			if subtle.ConstantTimeCompare([]byte(presented), []byte(key)) != 1 {
				shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid API key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
