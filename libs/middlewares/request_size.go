package middlewares

import (
	"net/http"
	"strings"
)

// RequestSizeLimitMiddleware limits the size of request bodies.
// maxRequestSize applies to every path, except those starting with a prefix in overrides,
// which use the mapped limit instead (uploads need more room than JSON bodies).
func RequestSizeLimitMiddleware(maxRequestSize int64, overrides map[string]int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limit := limitFor(r.URL.Path, maxRequestSize, overrides)

			if r.ContentLength > limit {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusRequestEntityTooLarge)
				w.Write([]byte(`{"error":"request body too large","code":"too_large"}`))
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}

// limitFor picks the override with the longest matching prefix
func limitFor(path string, fallback int64, overrides map[string]int64) int64 {
	limit, matched := fallback, 0
	for prefix, l := range overrides {
		if strings.HasPrefix(path, prefix) && len(prefix) > matched {
			limit, matched = l, len(prefix)
		}
	}
	return limit
}
