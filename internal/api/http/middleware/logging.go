package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dtroode/coursemarket-auth/internal/logger"
	"github.com/dtroode/coursemarket-auth/internal/metrics"
)

// Logging logs every HTTP request and records its duration.
type Logging struct {
	logger  *logger.Logger
	metrics *metrics.Auth
}

// NewLogging creates a new Logging middleware.
func NewLogging(logger *logger.Logger, metrics *metrics.Auth) *Logging {
	return &Logging{logger: logger, metrics: metrics}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Handle must wrap the ServeMux directly so the matched route pattern is
// visible after the request is served.
func (l *Logging) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		defer func() {
			if p := recover(); p != nil {
				l.logger.Error("HTTP handler panic",
					"method", r.Method,
					"path", r.URL.Path,
					"panic", p)
				rec.WriteHeader(http.StatusInternalServerError)
			}

			duration := time.Since(start)
			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			l.metrics.ObserveHTTP(r.Method, route, strconv.Itoa(rec.status), duration)

			l.logger.Info("HTTP request completed",
				"method", r.Method,
				"route", route,
				"status", rec.status,
				"duration_ms", duration.Milliseconds())
		}()

		next.ServeHTTP(rec, r)
	})
}
