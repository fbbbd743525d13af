package logging

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// Middleware adds a request ID to each HTTP request and logs its start and
// completion.
func Middleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = uuid.New().String()
			}

			ctx := WithRequestID(r.Context(), requestID)
			r = r.WithContext(ctx)
			w.Header().Set(RequestIDHeader, requestID)

			wrapped := &StatusRecorder{ResponseWriter: w, Status: http.StatusOK}

			start := time.Now()
			logger.DebugContext(ctx, "request started",
				"method", r.Method,
				"path", r.URL.Path,
				"remoteAddr", r.RemoteAddr,
			)

			next.ServeHTTP(wrapped, r)

			level := slog.LevelInfo
			msg := "request completed"
			if wrapped.Status >= http.StatusInternalServerError {
				level = slog.LevelError
				msg = "request failed"
			} else if wrapped.Status >= http.StatusBadRequest {
				level = slog.LevelWarn
				msg = "request rejected"
			}
			logger.Log(ctx, level, msg,
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.Status,
				"durationMs", time.Since(start).Milliseconds(),
			)
		})
	}
}

// StatusRecorder wraps http.ResponseWriter to capture the status code.
type StatusRecorder struct {
	http.ResponseWriter
	Status int
}

func (rw *StatusRecorder) WriteHeader(code int) {
	rw.Status = code
	rw.ResponseWriter.WriteHeader(code)
}
