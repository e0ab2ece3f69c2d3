package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"nutrition-call-assistant/internal/platform/logger"
)

// Recover reemplaza a chi/middleware.Recoverer: responde 500 {error} en JSON
// y deja el stack en el log estructurado.
func Recover(log logger.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = logger.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.Error("panic recovered", map[string]any{
					"method": r.Method,
					"path":   r.URL.Path,
					"panic":  fmt.Sprint(rec),
					"stack":  string(debug.Stack()),
				})
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = fmt.Fprintf(w, "{\"error\":%q}\n", fmt.Sprint(rec))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
