package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/haasonsaas/boxgrid/pkg/models"
)

type userKey struct{}

// WithUser returns ctx carrying user. A nil user leaves ctx unchanged.
func WithUser(ctx context.Context, user *models.User) context.Context {
	if user == nil {
		return ctx
	}
	return context.WithValue(ctx, userKey{}, user)
}

// UserFromContext returns the signed-in user attached by Middleware.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	if user, ok := ctx.Value(userKey{}).(*models.User); ok && user != nil {
		return user, true
	}
	return nil, false
}

// Middleware resolves the session on each request and attaches the user to
// the request context. It never rejects a request: missing or invalid
// sessions are served anonymously under the default namespace.
func Middleware(service *Service, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !service.Enabled() {
				next.ServeHTTP(w, r)
				return
			}
			token := service.TokenFromRequest(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			user, err := service.Authenticate(token)
			if err != nil {
				level := slog.LevelDebug
				if !errors.Is(err, ErrSessionRevoked) && !errors.Is(err, ErrInvalidToken) {
					level = slog.LevelWarn
				}
				logger.Log(r.Context(), level, "session rejected", "path", r.URL.Path, "error", err)
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// RequireUser answers 401 when no user is attached to the request.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserFromContext(r.Context()); !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
