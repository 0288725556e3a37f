package middleware

import (
	"net/http"

	"unistay/pkg/auth"
	apperrors "unistay/pkg/errors"
	httputil "unistay/pkg/http"
	"unistay/pkg/logger"
	"unistay/pkg/metrics"
)

type Enforcer interface {
	Enforce(subject, path, method string) (bool, error)
}

// Authorize checks the caller's role against the route policy. Anonymous
// callers that are denied get 401, signed-in callers 403.
func Authorize(enforcer Enforcer, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := auth.FromContext(r.Context())
			subject := auth.Subject(principal)

			allowed, err := enforcer.Enforce(subject, r.URL.Path, r.Method)
			if err != nil {
				log.Error("Authorization check failed",
					"request_id", logger.RequestID(r.Context()),
					"subject", subject,
					"path", r.URL.Path,
					"error", err,
				)
				_ = httputil.WriteError(w, apperrors.Internal("Authorization check failed", err))
				return
			}

			if !allowed {
				metrics.AuthzDeniedTotal.WithLabelValues(subject, r.Method).Inc()
				if principal == nil {
					_ = httputil.WriteError(w, apperrors.Unauthorized("Authentication required"))
					return
				}
				log.Warn("Access denied",
					"request_id", logger.RequestID(r.Context()),
					"user_id", principal.UserID,
					"role", subject,
					"method", r.Method,
					"path", r.URL.Path,
				)
				_ = httputil.WriteError(w, apperrors.Forbidden("You do not have permission to perform this action"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
