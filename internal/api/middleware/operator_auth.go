package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/fleetlock/fleetlock/internal/operator"
)

// operatorIDKey is the context key for the authenticated operator ID.
type operatorIDKey struct{}

// OperatorAuth creates middleware that validates operator JWT bearer tokens.
func OperatorAuth(tokens *operator.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeError(w, r, http.StatusUnauthorized, "missing or malformed authorization header")
				return
			}

			claims, err := tokens.Validate(token)
			if err != nil {
				switch {
				case errors.Is(err, operator.ErrTokenExpired):
					writeError(w, r, http.StatusUnauthorized, "operator token has expired")
				default:
					writeError(w, r, http.StatusUnauthorized, "invalid operator token")
				}
				return
			}

			ctx := context.WithValue(r.Context(), operatorIDKey{}, claims.OperatorID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetOperatorID retrieves the authenticated operator ID from the context.
// Returns an empty string if not authenticated.
func GetOperatorID(ctx context.Context) string {
	if id, ok := ctx.Value(operatorIDKey{}).(string); ok {
		return id
	}
	return ""
}
