package middleware

import "net/http"

// MaxRequestSize caps request bodies. Paths in overrides get their own limit.
func MaxRequestSize(limit int64, overrides map[string]int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			n := limit
			if override, ok := overrides[r.URL.Path]; ok {
				n = override
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, n)
			}
			next.ServeHTTP(w, r)
		})
	}
}
