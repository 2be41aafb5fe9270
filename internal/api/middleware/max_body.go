package middleware

import (
	"net/http"

	"github.com/cloo-solutions/corpora/internal/api"
)

// MaxBodyBytes caps request body size. Declared lengths over the limit are
// rejected up front; chunked bodies are capped by MaxBytesReader as the
// handler reads them. A limit of zero disables the cap.
func MaxBodyBytes(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body == nil {
				next.ServeHTTP(w, r)
				return
			}
			if r.ContentLength > limit {
				api.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
