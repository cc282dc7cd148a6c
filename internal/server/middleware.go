package server

import (
	"net/http"
	"time"
)

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.code = code
	sr.ResponseWriter.WriteHeader(code)
}

// instrument logs every request and records it in the metrics.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sr := &statusRecorder{ResponseWriter: w, code: http.StatusOK}

		next.ServeHTTP(sr, r)

		elapsed := time.Since(start)
		// ServeMux sets Pattern on the request it routes.
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}

		if s.metrics != nil {
			s.metrics.RecordHTTPRequest(r.Method, route, sr.code, elapsed)
		}
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sr.code,
			"elapsed", elapsed,
		)
	})
}
