package api

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/tt1717/battleserver/internal/logger"
)

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware logs each request with timing and status.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log := logger.Default().WithFields(map[string]any{
			"method": r.Method,
			"path":   r.URL.Path,
		})

		r = r.WithContext(logger.NewContext(r.Context(), log))
		wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		log = log.WithFields(map[string]any{
			"status":      wrapped.status,
			"duration_ms": time.Since(start).Milliseconds(),
		})
		switch {
		case wrapped.status >= 500:
			log.Error("request failed")
		case wrapped.status >= 400:
			log.Warn("request rejected")
		default:
			log.Info("request completed")
		}
	})
}

// recoveryMiddleware turns panics into 500s.
func recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.FromContext(r.Context()).Error("panic recovered: %v", rec)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// rateLimitMiddleware bounds the overall request rate. Battle-end hooks
// and admin verbs share the bucket; zero disables limiting.
func rateLimitMiddleware(perSec float64, burst int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if perSec <= 0 {
			return next
		}
		if burst <= 0 {
			burst = int(perSec)
		}
		limiter := rate.NewLimiter(rate.Limit(perSec), burst)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
