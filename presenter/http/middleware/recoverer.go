package middleware

import (
	"fmt"
	"net/http"

	"github.com/bridgekit/gravity-orchestrator/presenter/http/render"
)

func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				err, ok := rec.(error)
				if !ok {
					err = fmt.Errorf("recovered: %v", rec)
				}
				render.Error(w, r, http.StatusInternalServerError, fmt.Errorf("http handler panicked: %w", err))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
