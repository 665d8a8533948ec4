package errors

import (
	"net/http"
	"runtime/debug"

	"github.com/copyleftdev/crat/internal/logging"
)

// RecoveryMiddleware turns a panicking handler into a 500 response and logs
// the panic with its stack.
func RecoveryMiddleware(logger *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("Recovered from panic", map[string]interface{}{
						"error":  rec,
						"stack":  string(debug.Stack()),
						"method": r.Method,
						"path":   r.URL.Path,
					})
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
