package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/dojoflow/backend/internal/models"
	"github.com/dojoflow/backend/internal/web"
)

// TokenVerifier resolves a presented bearer token to its user.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*models.User, error)
}

type contextKey struct{}

var actorKey contextKey

// Actor returns the authenticated user stored by RequireAuth.
func Actor(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(actorKey).(*models.User)
	return u, ok
}

// WithActor returns a context carrying the given user. Exposed for handler
// tests.
func WithActor(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, actorKey, u)
}

// RequireAuth validates the Authorization bearer token and threads the
// resolved user through the request context as an explicit actor value.
func RequireAuth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			user, err := verifier.VerifyToken(r.Context(), token)
			if err != nil {
				web.WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), user)))
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
