package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/campusprint/campusprint-backend/api/responses"
	pkgerrors "github.com/campusprint/campusprint-backend/pkg/errors"
	"github.com/campusprint/campusprint-backend/pkg/logger"
)

// Recoverer turns a handler panic into a 500. http.ErrAbortHandler is
// re-panicked because net/http uses it to drop the connection on purpose.
func Recoverer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}
				err := fmt.Errorf("handler panic: %v", rec)
				if logg != nil {
					logg.Error(r.Context(), "recovered from panic", err)
				}
				responses.WriteError(r.Context(), nil, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "internal error"))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
