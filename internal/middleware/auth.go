package middleware

import (
	"log/slog"
	"net/http"

	"github.com/ayush/storyhub/backend/internal/auth"
	"github.com/ayush/storyhub/backend/internal/httpjson"
	"github.com/ayush/storyhub/backend/internal/metrics"
)

// RequireAuth is middleware that runs the session guard on the
// Authorization header and injects the resolved user into the request
// context. Every rejection is a 401; the reason is only logged.
func RequireAuth(guard *auth.Guard, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := guard.Authenticate(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				reason := auth.RejectionReason(err)
				if reason == "" {
					metrics.GuardDecisions.WithLabelValues(metrics.ResultError).Inc()
					httpjson.WriteError(w, r, log, err)
					return
				}
				metrics.GuardDecisions.WithLabelValues(reason).Inc()
				log.WarnContext(r.Context(), "request rejected",
					"path", r.URL.Path, "reason", reason, "err", err)
				httpjson.WriteError(w, r, log, err)
				return
			}

			metrics.GuardDecisions.WithLabelValues("verified").Inc()
			next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), user)))
		})
	}
}
