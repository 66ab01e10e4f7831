package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

// RateLimitConfig holds configuration for rate limiting.
type RateLimitConfig struct {
	// Requests per window
	RequestLimit int
	// Window duration
	WindowLength time.Duration
}

// Default rate limit configurations.
var (
	// RegistrationRateLimit applies to device registration (30 req/min).
	// Registration is unauthenticated, so this is keyed by client IP.
	RegistrationRateLimit = RateLimitConfig{
		RequestLimit: 30,
		WindowLength: time.Minute,
	}

	// DeviceRateLimit applies to per-device endpoints (120 req/min).
	// Generous enough for a device polling every few seconds.
	DeviceRateLimit = RateLimitConfig{
		RequestLimit: 120,
		WindowLength: time.Minute,
	}

	// OperatorRateLimit applies to operator endpoints (60 req/min).
	OperatorRateLimit = RateLimitConfig{
		RequestLimit: 60,
		WindowLength: time.Minute,
	}
)

// RateLimitByIP creates a rate limiter middleware using client IP address.
// Uses X-Forwarded-For header if present (extracted by chi's RealIP middleware).
func RateLimitByIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowLength,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(rateLimitExceededHandler),
	)
}

// RateLimitByDevice creates a rate limiter middleware keyed by the
// {deviceId} route parameter. Falls back to IP-based rate limiting when
// the route carries no device ID.
func RateLimitByDevice(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowLength,
		httprate.WithKeyFuncs(keyByDeviceOrIP),
		httprate.WithLimitHandler(rateLimitExceededHandler),
	)
}

// keyByDeviceOrIP returns the device ID from the route, otherwise the client IP.
func keyByDeviceOrIP(r *http.Request) (string, error) {
	if deviceID := chi.URLParam(r, "deviceId"); deviceID != "" {
		return "device:" + deviceID, nil
	}

	return httprate.KeyByRealIP(r)
}

// rateLimitExceededHandler writes an error envelope when rate limit is exceeded.
func rateLimitExceededHandler(w http.ResponseWriter, r *http.Request) {
	// httprate doesn't expose exact reset time, so we use a conservative estimate
	w.Header().Set("Retry-After", strconv.Itoa(60)) // 60 seconds

	writeError(w, r, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
}
