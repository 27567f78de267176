package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/Pesokrava/plant_store/internal/delivery/http/response"
	"github.com/Pesokrava/plant_store/internal/pkg/logger"
)

// Recovery turns a handler panic into a 500 and logs the stack.
// http.ErrAbortHandler is re-raised so net/http can abort the connection.
func Recovery(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}

					fields := map[string]interface{}{
						"method": r.Method,
						"path":   r.URL.Path,
						"stack":  string(debug.Stack()),
					}
					if principal, ok := PrincipalFrom(r.Context()); ok {
						fields["user_id"] = principal.UserID
					}
					log.WithContext(r.Context()).WithFields(fields).
						Error("Panic recovered", fmt.Errorf("panic: %v", rec))

					response.Error(w, http.StatusInternalServerError, "Internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
