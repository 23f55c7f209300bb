package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/marbelle/internal/auth"
	"github.com/dukerupert/marbelle/internal/domain"
)

// WithUser authenticates the bearer token, if any, and adds the user to the request context.
// Requests without an Authorization header continue anonymously. A header that is
// present but malformed, expired or names an inactive user is rejected with 401 so
// clients never silently fall back to a guest cart.
func WithUser(authn auth.Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, present := auth.BearerToken(r.Header.Get("Authorization"))
			if !present {
				next.ServeHTTP(w, r)
				return
			}

			user, err := authn.Authenticate(r.Context(), token)
			if err != nil {
				if errors.Is(err, auth.ErrMissingToken) || errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrInactiveUser) {
					GetLogger(r.Context()).Debug("bearer token rejected", slog.String("error", err.Error()))
					respondWithError(w, r, domain.Unauthorized("auth.bearer", "Given token not valid for any token type."))
					return
				}
				respondInternalError(w, r, err)
				return
			}

			ctx := domain.NewContextWithUser(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth ensures the user is authenticated, returning 401 if not
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetUserFromContext(r.Context()) == nil {
			respondUnauthorized(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetUserFromContext retrieves the user from the request context
// Returns nil if no user is authenticated
func GetUserFromContext(ctx context.Context) *domain.User {
	return domain.UserFromContext(ctx)
}
