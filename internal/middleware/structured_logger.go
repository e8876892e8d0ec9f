package middleware

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// responseRecorder captures the status code written by the handler.
type responseRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

// StructuredLogging logs every request with its outcome and duration.
// Slow requests are escalated to warnings.
func StructuredLogging(slowThreshold time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &responseRecorder{ResponseWriter: w}

			next.ServeHTTP(recorder, r)

			duration := time.Since(start)
			logger := GetLogger(r.Context())
			fields := []zap.Field{
				zap.Int("status", recorder.status),
				zap.Int("bytes", recorder.bytes),
				zap.Duration("duration", duration),
			}

			switch {
			case duration > slowThreshold:
				logger.Warn("Slow request completed", fields...)
			case recorder.status >= http.StatusInternalServerError:
				logger.Error("Request failed", fields...)
			default:
				logger.Info("Request completed", fields...)
			}
		})
	}
}
