package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/healthdesk/healthdesk-platform/internal/accounts"
)

// ActorClaims is the token payload: subject carries the user id and Role the
// role claimed at issue time. The role is advisory; the authoritative role is
// re-read from the directory on every request.
type ActorClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// ActorAuth enforces an HMAC-signed JWT and resolves the authenticated user
// from the directory. Inactive or deleted accounts are rejected even when the
// token is still valid.
func ActorAuth(secret string, directory accounts.Directory) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				http.Error(w, "authentication disabled", http.StatusUnauthorized)
				return
			}
			auth := r.Header.Get("Authorization")
			if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}
			tokenString := strings.TrimPrefix(auth, "Bearer ")
			claims := &ActorClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			userID, err := uuid.Parse(claims.Subject)
			if err != nil {
				http.Error(w, "invalid token subject", http.StatusUnauthorized)
				return
			}

			user, err := directory.ResolveUser(r.Context(), userID)
			if err != nil {
				http.Error(w, "unknown user", http.StatusUnauthorized)
				return
			}
			if !user.IsActive {
				http.Error(w, "account disabled", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r.WithContext(accounts.WithActor(r.Context(), user)))
		})
	}
}

// ActorFromContext returns the authenticated user if present.
func ActorFromContext(ctx context.Context) (*accounts.User, bool) {
	return accounts.ActorFromContext(ctx)
}

// RequireRole rejects requests whose actor does not hold one of the given
// roles. It must run after ActorAuth.
func RequireRole(roles ...accounts.Role) func(http.Handler) http.Handler {
	allowed := make(map[accounts.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			if !ok {
				http.Error(w, "authentication required", http.StatusUnauthorized)
				return
			}
			if _, ok := allowed[actor.Role]; !ok {
				http.Error(w, "insufficient role", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
