package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/hugh/ticketdesk/internal/api/dto"
	"github.com/hugh/ticketdesk/internal/auth"
)

type contextKey string

const (
	IdentityKey   contextKey = "identity"
	MembershipKey contextKey = "membership"
)

// Cookie names for the two halves of the authentication state.
const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"
)

// Authenticate resolves the access token from the Authorization header or the
// access_token cookie and stores the caller's identity in the context.
func Authenticate(resolver auth.IdentityResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := accessToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, dto.CodeUnauthorized, "Authentication required")
				return
			}

			identity, err := resolver.ResolveUser(r.Context(), token)
			if err != nil {
				if errors.Is(err, auth.ErrUnauthorized) {
					writeError(w, http.StatusUnauthorized, dto.CodeUnauthorized, "Authentication required")
					return
				}
				logger.Error("resolving identity", "error", err)
				writeError(w, http.StatusInternalServerError, dto.CodeInternal, "Internal server error")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

func accessToken(r *http.Request) string {
	// 1. Authorization header (API clients)
	if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		if token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer ")); token != "" {
			return token
		}
	}

	// 2. Cookie (browser)
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}

func WithIdentity(ctx context.Context, identity *auth.Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, identity)
}

// Helper functions to extract values from context
func GetIdentity(ctx context.Context) *auth.Identity {
	if id, ok := ctx.Value(IdentityKey).(*auth.Identity); ok {
		return id
	}
	return nil
}

func GetUserID(ctx context.Context) uuid.UUID {
	if id := GetIdentity(ctx); id != nil {
		return id.ID
	}
	return uuid.Nil
}
