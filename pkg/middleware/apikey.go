package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"

	"go.uber.org/zap"
)

// APIKeyHeader carries the shared key the UI backend uses to call this service
const APIKeyHeader = "X-API-Key"

// APIKeyAuth rejects requests whose X-API-Key does not match one of the configured keys.
// Keys are compared as SHA-256 digests in constant time.
func APIKeyAuth(keys []string, logger *zap.Logger) func(http.Handler) http.Handler {
	return APIKeyAuthFunc(func() []string { return keys }, logger)
}

// APIKeyAuthFunc is APIKeyAuth with the key set read on every request, so keys
// can be rotated by reloading configuration.
func APIKeyAuthFunc(keys func() []string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := r.Header.Get(APIKeyHeader)
			if presented == "" {
				http.Error(w, "missing API key", http.StatusUnauthorized)
				return
			}

			sum := sha256.Sum256([]byte(presented))
			match := 0
			for _, k := range keys() {
				if k == "" {
					continue
				}
				d := sha256.Sum256([]byte(k))
				match |= subtle.ConstantTimeCompare(sum[:], d[:])
			}
			if match == 1 {
				next.ServeHTTP(w, r)
				return
			}

			logger.Warn("Rejected API key", zap.String("path", r.URL.Path), zap.String("remote_addr", r.RemoteAddr))
			http.Error(w, "invalid API key", http.StatusUnauthorized)
		})
	}
}
