package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"bingetracker/internal/auth"
	"bingetracker/models"
	"bingetracker/services/accounts"
)

// UserResolver maps a bearer token to the signed-in user.
type UserResolver interface {
	CurrentUser(ctx context.Context, token string) (models.User, error)
}

var _ UserResolver = (*accounts.Identity)(nil)

// AuthMiddleware rejects requests without a valid session or ID token and
// stores the user id in the request context. Tokens come from the
// Authorization header, or ?token= for websocket clients.
func AuthMiddleware(users UserResolver) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			token := extractToken(r)
			if token == "" {
				writeError(w, "authentication required", http.StatusUnauthorized)
				return
			}

			user, err := users.CurrentUser(r.Context(), token)
			switch {
			case errors.Is(err, accounts.ErrNotAuthenticated), errors.Is(err, accounts.ErrUserNotFound):
				writeError(w, "invalid or expired session", http.StatusUnauthorized)
				return
			case err != nil:
				writeError(w, "could not resolve user", http.StatusInternalServerError)
				return
			}

			ctx := auth.WithUser(r.Context(), user.UUID, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken prefers the Authorization header over the query parameter.
func extractToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			if token := strings.TrimSpace(parts[1]); token != "" {
				return token
			}
		}
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}
