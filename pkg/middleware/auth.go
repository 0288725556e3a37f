package middleware

import (
	"context"
	"net/http"
	"strings"

	"unistay/pkg/auth"
	apperrors "unistay/pkg/errors"
	httputil "unistay/pkg/http"
	"unistay/pkg/logger"
	"unistay/pkg/model"
)

// UserResolver maps verified session claims to the stored user, creating it
// on first sign-in.
type UserResolver interface {
	ResolveSession(ctx context.Context, claims *auth.SessionClaims) (*model.User, error)
}

type SessionVerifier interface {
	Verify(token string) (*auth.SessionClaims, error)
}

// Authenticate attaches the caller to the request context. Requests without
// a session continue anonymously; authorization decides what they may do.
func Authenticate(verifier SessionVerifier, resolver UserResolver, cookieName string, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := sessionToken(r, cookieName)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := verifier.Verify(token)
			if err != nil {
				log.Warn("Session verification failed",
					"request_id", logger.RequestID(r.Context()),
					"path", r.URL.Path,
					"error", err,
				)
				_ = httputil.WriteError(w, apperrors.Unauthorized("Invalid or expired session"))
				return
			}

			user, err := resolver.ResolveSession(r.Context(), claims)
			if err != nil {
				log.Error("Failed to resolve session user",
					"request_id", logger.RequestID(r.Context()),
					"error", err,
				)
				if !apperrors.IsAppError(err) {
					err = apperrors.Internal("Failed to load user", err)
				}
				_ = httputil.WriteError(w, err)
				return
			}

			principal := auth.PrincipalFromUser(user)
			principal.IP = ClientIP(r)
			principal.UserAgent = r.UserAgent()

			if principal.Blacklisted && r.Method != http.MethodGet {
				log.Warn("Blacklisted user attempted a write",
					"request_id", logger.RequestID(r.Context()),
					"user_id", principal.UserID,
					"path", r.URL.Path,
				)
				_ = httputil.WriteError(w, apperrors.Forbidden("Your account has been suspended"))
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), principal)))
		})
	}
}

func sessionToken(r *http.Request, cookieName string) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(cookieName); err == nil {
		return cookie.Value
	}
	return ""
}
