package middleware

import (
	"net/http"
	"time"

	"betting-bff-go/logcolors"

	log "github.com/sirupsen/logrus"
)

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

// getStatusColor returns the ANSI color for a status code class
func getStatusColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "\033[32m" // Green
	case statusCode >= 300 && statusCode < 400:
		return "\033[36m" // Cyan
	case statusCode >= 400 && statusCode < 500:
		return "\033[33m" // Yellow
	default:
		return "\033[31m" // Red
	}
}

// LoggingMiddleware logs every request with method, path, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(recorder, r)

		duration := time.Since(start)
		log.Infof("%s %s %s %s%d\033[0m %v",
			logcolors.LogRequest, r.Method, r.URL.Path, getStatusColor(recorder.statusCode), recorder.statusCode, duration)
	})
}
