package middleware

import (
	"net/http"
)

// Common size limits
const (
	KB = 1024

	// DefaultMaxBodySize covers every request the storefront API accepts.
	DefaultMaxBodySize = 64 * KB
)

// MaxBodySize rejects requests whose declared length exceeds maxBytes and
// caps the body reader for the rest. DefaultMaxBodySize is used when no
// size is given.
func MaxBodySize(maxBytes ...int64) func(http.Handler) http.Handler {
	limit := int64(DefaultMaxBodySize)
	if len(maxBytes) > 0 {
		limit = maxBytes[0]
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil && r.ContentLength > limit {
				respondTooLarge(w, r, "Request body too large")
				return
			}

			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}
