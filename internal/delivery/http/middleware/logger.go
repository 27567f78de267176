package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Pesokrava/plant_store/internal/pkg/logger"
)

// responseWriter records the status code and body size written by the handler
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	bytes      int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += n
	return n, err
}

// Logger returns a middleware that logs HTTP requests.
// Server errors are logged at error level, client errors at warn.
func Logger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			fields := map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      rw.statusCode,
				"duration_ms": time.Since(start).Milliseconds(),
				"remote_addr": r.RemoteAddr,
				"bytes":       rw.bytes,
			}
			if reqID := chimw.GetReqID(r.Context()); reqID != "" {
				fields["request_id"] = reqID
			}
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				fields["route"] = rctx.RoutePattern()
			}
			if principal, ok := PrincipalFrom(r.Context()); ok {
				fields["user_id"] = principal.UserID
			}

			entry := log.WithContext(r.Context()).WithFields(fields)
			switch {
			case rw.statusCode >= http.StatusInternalServerError:
				entry.Error("HTTP request", nil)
			case rw.statusCode >= http.StatusBadRequest:
				entry.Warn("HTTP request")
			default:
				entry.Info("HTTP request")
			}
		})
	}
}
