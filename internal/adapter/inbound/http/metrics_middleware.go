package http

import (
	"net/http"
	"strings"
	"time"
)

// MetricsMiddleware records request counts and durations for the
// submission API, labelled by method, route pattern and coarse status.
// /metrics and /health are scrape and probe traffic, not API load, and
// are not recorded.
func MetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/metrics" || r.URL.Path == "/health" {
				next.ServeHTTP(w, r)
				return
			}

			route := routeLabel(r.URL.Path)
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			start := time.Now()
			next.ServeHTTP(rec, r)

			metrics.RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
			metrics.RequestsTotal.WithLabelValues(r.Method, route, statusToLabel(rec.status)).Inc()
		})
	}
}

// routeLabel collapses a request path to the route pattern it targets.
// Message IDs are folded into {id} and unknown paths into "other" so
// label cardinality stays bounded no matter what clients send.
func routeLabel(path string) string {
	switch {
	case path == "/api/v1/messages":
		return "/api/v1/messages"
	case strings.HasPrefix(path, "/api/v1/messages/"):
		return "/api/v1/messages/{id}"
	case path == "/api/v1/dead-letters":
		return "/api/v1/dead-letters"
	case path == "/api/v1/stats":
		return "/api/v1/stats"
	default:
		return "other"
	}
}

// statusRecorder captures the status code written by the handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// statusToLabel folds a status code to ok/error. Rejections (4xx) are
// errors from the counter's point of view; redirects are not.
func statusToLabel(code int) string {
	if code >= 200 && code < 400 {
		return "ok"
	}
	return "error"
}
