package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/VishalVrk/rfid-cart/pkg/httputil"
	"github.com/VishalVrk/rfid-cart/pkg/logger"
)

type contextKey int

const claimsKey contextKey = iota

// RoleAdmin is the role allowed on /admin routes.
const RoleAdmin = "admin"

// ErrInvalidToken is returned by validators for unknown tokens.
var ErrInvalidToken = errors.New("invalid token")

// Claims identifies the caller behind a bearer token.
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// TokenValidator resolves a bearer token to claims.
type TokenValidator func(token string) (*Claims, error)

// StaticTokens validates against a fixed token table, comparing in constant
// time. Empty tokens are ignored, so an unset admin token disables admin
// access rather than accepting an empty header.
func StaticTokens(tokens map[string]Claims) TokenValidator {
	type entry struct {
		token  []byte
		claims Claims
	}
	entries := make([]entry, 0, len(tokens))
	for tok, c := range tokens {
		if tok != "" {
			entries = append(entries, entry{[]byte(tok), c})
		}
	}

	return func(token string) (*Claims, error) {
		given := []byte(token)
		var match *Claims
		for _, e := range entries {
			if subtle.ConstantTimeCompare(e.token, given) == 1 {
				c := e.claims
				match = &c
			}
		}
		if match == nil {
			return nil, ErrInvalidToken
		}
		return match, nil
	}
}

// Auth requires an "Authorization: Bearer <token>" header accepted by
// validate and stores the resulting claims in the request context.
func Auth(validate TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
			if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or malformed bearer token")
				return
			}

			claims, err := validate(strings.TrimSpace(token))
			if err != nil {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			ctx = logger.WithUserID(ctx, claims.UserID)
			ctx = logger.NewContext(ctx, logger.FromContext(ctx).With(slog.String("user_id", claims.UserID)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects callers whose role is not in roles. Mount after Auth.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
				return
			}
			if _, ok := allowed[claims.Role]; !ok {
				writeError(w, http.StatusForbidden, "FORBIDDEN", "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClaimsFromContext returns the authenticated caller, or nil.
func ClaimsFromContext(ctx context.Context) *Claims {
	c, _ := ctx.Value(claimsKey).(*Claims)
	return c
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	httputil.WriteJSON(w, status, httputil.Response{
		Error: &httputil.ErrorResponse{Code: code, Message: message},
	})
}
