package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/api-sage/atm-simulator/src/internal/logger"
)

// Recover turns a panic into the internal error response produced by onPanic.
func Recover(onPanic http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logger.Error("recover middleware caught panic", fmt.Errorf("%v", rec), logger.Fields{
						"method": r.Method,
						"path":   r.URL.Path,
						"stack":  string(debug.Stack()),
					})
					onPanic(w, r)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
