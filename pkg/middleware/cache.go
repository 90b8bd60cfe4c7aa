package middleware

import (
	"fmt"
	"net/http"
	"time"
)

// CacheControl marks successful GET responses as publicly cacheable for
// maxAge. A non-positive maxAge sets "no-store" instead, so intermediaries
// never add staleness beyond the server-side result cache.
func CacheControl(maxAge time.Duration) func(http.Handler) http.Handler {
	value := "no-store"
	if maxAge > 0 {
		value = fmt.Sprintf("public, max-age=%d", int(maxAge.Seconds()))
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead {
				w.Header().Set("Cache-Control", value)
			}
			next.ServeHTTP(w, r)
		})
	}
}
