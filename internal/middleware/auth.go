package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/Strob0t/nextup/internal/domain/user"
	"github.com/Strob0t/nextup/internal/logger"
)

type authUserCtxKey struct{}
type claimsCtxKey struct{}

// LocalUserID owns all data when authentication is disabled.
const LocalUserID = "00000000-0000-0000-0000-000000000000"

// LocalUser returns the user injected when authentication is disabled.
func LocalUser() *user.User {
	return &user.User{
		ID:      LocalUserID,
		Email:   "local@localhost",
		Name:    "Local",
		Enabled: true,
	}
}

// TokenValidator verifies an access token and returns its claims.
type TokenValidator interface {
	ValidateAccessToken(ctx context.Context, token string) (*user.TokenClaims, error)
}

// publicPaths are exempt from authentication.
var publicPaths = map[string]bool{
	"/":                     true,
	"/health":               true,
	"/api/v1/auth/login":    true,
	"/api/v1/auth/register": true,
	"/api/v1/auth/refresh":  true,
}

// Auth returns middleware that validates JWT bearer credentials.
// When authEnabled is false, the fixed local user is injected.
func Auth(tokens TokenValidator, authEnabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !authEnabled {
				next.ServeHTTP(w, r.WithContext(withUser(r.Context(), LocalUser(), nil)))
				return
			}

			if publicPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			// Browsers cannot set headers on WebSocket upgrades.
			var token string
			if r.URL.Path == "/ws" {
				token = r.URL.Query().Get("token")
				if token == "" {
					http.Error(w, `{"error":"authorization required"}`, http.StatusUnauthorized)
					return
				}
			} else {
				authHeader := r.Header.Get("Authorization")
				if authHeader == "" {
					http.Error(w, `{"error":"authorization required"}`, http.StatusUnauthorized)
					return
				}
				token = strings.TrimPrefix(authHeader, "Bearer ")
				if token == authHeader {
					http.Error(w, `{"error":"invalid authorization header"}`, http.StatusUnauthorized)
					return
				}
			}

			claims, err := tokens.ValidateAccessToken(r.Context(), token)
			if err != nil {
				http.Error(w, `{"error":"invalid or expired token"}`, http.StatusUnauthorized)
				return
			}

			u := &user.User{
				ID:      claims.UserID,
				Email:   claims.Email,
				Enabled: true,
			}
			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), u, claims)))
		})
	}
}

func withUser(ctx context.Context, u *user.User, claims *user.TokenClaims) context.Context {
	ctx = context.WithValue(ctx, authUserCtxKey{}, u)
	if claims != nil {
		ctx = context.WithValue(ctx, claimsCtxKey{}, claims)
	}
	return logger.WithUserID(ctx, u.ID)
}

// UserFromContext returns the authenticated user from the request context.
func UserFromContext(ctx context.Context) *user.User {
	u, _ := ctx.Value(authUserCtxKey{}).(*user.User)
	return u
}

// ClaimsFromContext returns the verified token claims, or nil when auth is
// disabled or the path is public.
func ClaimsFromContext(ctx context.Context) *user.TokenClaims {
	c, _ := ctx.Value(claimsCtxKey{}).(*user.TokenClaims)
	return c
}

// ContextWithUser stores u as the authenticated user. Used by background
// jobs and tools that act on behalf of a known user.
func ContextWithUser(ctx context.Context, u *user.User) context.Context {
	return withUser(ctx, u, nil)
}

// AuthUserCtxKeyForTest returns the context key used for storing the auth user.
// Exported only for use in tests that need to inject a user into the context.
func AuthUserCtxKeyForTest() any {
	return authUserCtxKey{}
}
