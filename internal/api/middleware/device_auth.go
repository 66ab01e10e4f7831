package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// deviceIDKey is the context key for the authenticated device ID.
type deviceIDKey struct{}

// DeviceAuthenticator checks a device's bearer token.
type DeviceAuthenticator interface {
	// Authenticate verifies that token belongs to the active device
	// identified by deviceID.
	Authenticate(ctx context.Context, deviceID, token string) error
}

// DeviceAuth creates middleware that authenticates device requests. The
// device ID comes from the {deviceId} route parameter and the token from
// the Authorization header. Unknown devices and bad tokens both produce
// the same 401 so callers cannot probe which device IDs exist.
func DeviceAuth(authenticator DeviceAuthenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			deviceID := chi.URLParam(r, "deviceId")
			if deviceID == "" {
				writeError(w, r, http.StatusUnauthorized, "missing device id")
				return
			}

			token, ok := bearerToken(r)
			if !ok {
				writeError(w, r, http.StatusUnauthorized, "missing or malformed authorization header")
				return
			}

			if err := authenticator.Authenticate(r.Context(), deviceID, token); err != nil {
				writeError(w, r, http.StatusUnauthorized, "invalid device credentials")
				return
			}

			ctx := context.WithValue(r.Context(), deviceIDKey{}, deviceID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken extracts the token from the Authorization header.
// The Bearer prefix match is case-insensitive.
func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}

	const bearerPrefix = "Bearer "
	if len(authHeader) < len(bearerPrefix) ||
		!strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}

	token := authHeader[len(bearerPrefix):]
	if token == "" {
		return "", false
	}
	return token, true
}

// GetDeviceID retrieves the authenticated device ID from the context.
// Returns an empty string if not authenticated.
func GetDeviceID(ctx context.Context) string {
	if id, ok := ctx.Value(deviceIDKey{}).(string); ok {
		return id
	}
	return ""
}
