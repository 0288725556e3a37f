package middleware

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"unistay/pkg/metrics"
)

var objectIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)

// Metrics records request counts and latency per normalised route.
func Metrics() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &statusRecorder{ResponseWriter: w}

			next.ServeHTTP(wrapped, r)

			route := RouteLabel(r.URL.Path)
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.code())).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// RouteLabel replaces id segments so label cardinality stays bounded.
func RouteLabel(path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if objectIDPattern.MatchString(seg) {
			segments[i] = ":id"
		} else if i > 0 && segments[i-1] == "threads" && seg != "" {
			segments[i] = ":thread_id"
		}
	}
	return strings.Join(segments, "/")
}
