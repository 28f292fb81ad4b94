package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	apierrors "github.com/narvanalabs/preview-gateway/internal/api/errors"
	"github.com/narvanalabs/preview-gateway/internal/auth"
)

// Context keys for caller identity.
type contextKey string

const (
	// UserIDKey is the context key for the authenticated user ID.
	UserIDKey contextKey = "user_id"
	// UserEmailKey is the context key for the authenticated user email.
	UserEmailKey contextKey = "user_email"
)

// GetUserID extracts the user ID from the request context.
func GetUserID(ctx context.Context) string {
	if v := ctx.Value(UserIDKey); v != nil {
		return v.(string)
	}
	return ""
}

// GetUserEmail extracts the user email from the request context.
func GetUserEmail(ctx context.Context) string {
	if v := ctx.Value(UserEmailKey); v != nil {
		return v.(string)
	}
	return ""
}

// AuthMiddleware validates bearer tokens on the lifecycle API.
type AuthMiddleware struct {
	verifier auth.Verifier
	logger   *slog.Logger
}

// NewAuthMiddleware creates an authentication middleware.
func NewAuthMiddleware(verifier auth.Verifier, logger *slog.Logger) *AuthMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthMiddleware{verifier: verifier, logger: logger}
}

// Authenticate validates the Authorization header and stores the caller's
// identity in the request context.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := auth.ExtractBearerToken(r.Header.Get("Authorization"))
		if token == "" {
			apierrors.WriteError(w, apierrors.NewUnauthorizedError("missing authentication"))
			return
		}

		principal, err := m.verifier.Verify(token)
		if err != nil {
			m.logger.Debug("token validation failed", "error", err)
			if errors.Is(err, auth.ErrExpiredToken) {
				apierrors.WriteError(w, apierrors.NewUnauthorizedError("token has expired"))
				return
			}
			apierrors.WriteError(w, apierrors.NewUnauthorizedError("invalid token"))
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, principal.ID)
		ctx = context.WithValue(ctx, UserEmailKey, principal.Email)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
