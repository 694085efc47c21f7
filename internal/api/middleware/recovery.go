package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog"

	"github.com/greenroute/greenroute/internal/api/models"
)

// Recovery returns a middleware that turns a handler panic into a 500 problem
// response. The log line names the route and, on session routes, the session.
func Recovery(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					requestID := GetRequestID(r.Context())

					event := log.Error().
						Str("request_id", requestID).
						Str("method", r.Method).
						Str("route", routePattern(r))
					if sessionID := SessionID(r); sessionID != "" {
						event = event.Str("session_id", sessionID)
					}
					event.
						Interface("error", err).
						Str("stack", string(debug.Stack())).
						Msg("panic recovered")

					problem := models.NewInternalError(requestID, "an unexpected error occurred")
					problem.Instance = r.URL.Path
					problem.Write(w)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
