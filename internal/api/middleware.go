package api

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/ig-link-hub/internal/metrics"
)

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

// withMetrics is middleware that emits per-request EMF metrics:
// RequestLatencyMs, RequestCount (with Endpoint dimension).
func withMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(sr, r)

		elapsed := time.Since(start)
		endpoint := normalizeEndpoint(r.URL.Path)

		metrics.New(metrics.Namespace).
			Dimension("Endpoint", endpoint).
			Metric("RequestLatencyMs", float64(elapsed.Milliseconds()), metrics.UnitMilliseconds).
			Count("RequestCount").
			Property("method", r.Method).
			Property("statusCode", sr.statusCode).
			Flush()

		if sr.statusCode >= http.StatusInternalServerError {
			log.Warn().Str("endpoint", endpoint).Int("status", sr.statusCode).
				Dur("elapsed", elapsed).Msg("Request failed")
		}
	})
}

// normalizeEndpoint maps request paths to low-cardinality endpoint names
// to avoid creating excessive CloudWatch metric dimensions.
func normalizeEndpoint(path string) string {
	switch path {
	case "/api/save-post", "/api/user-data", "/api/shorten", "/api/links":
		return path
	default:
		return "other"
	}
}
