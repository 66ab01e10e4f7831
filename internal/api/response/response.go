// Package response provides utilities for HTTP response handling.
//
// Every body this API writes carries a top-level "status" field:
// "ok" responses merge their payload fields next to it (list payloads
// go under "data"), and "error" responses carry a single "message".
package response

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/fleetlock/fleetlock/internal/api/middleware"
)

// errorBody is the wire shape of every error response.
type errorBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// writeJSON writes a JSON response with the given status code.
// Includes X-Request-Id header for correlation.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, body interface{}) {
	requestID := middleware.GetRequestID(r.Context())
	if requestID != "" {
		w.Header().Set("X-Request-Id", requestID)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// OK writes a 200 response with payload's fields merged into the ok
// envelope at the top level. A nil payload writes {"status":"ok"} alone.
func OK(w http.ResponseWriter, r *http.Request, payload interface{}) {
	OKWithStatus(w, r, http.StatusOK, payload)
}

// OKWithStatus is OK with an explicit HTTP status code, for 201s.
func OKWithStatus(w http.ResponseWriter, r *http.Request, status int, payload interface{}) {
	body := map[string]json.RawMessage{"status": json.RawMessage(`"ok"`)}

	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			InternalError(w, r, "failed to encode response")
			return
		}
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			InternalError(w, r, "failed to encode response")
			return
		}
		for k, v := range fields {
			body[k] = v
		}
	}

	writeJSON(w, r, status, body)
}

// Data writes a 200 response with a list payload under the "data" key.
// A nil list is written as an empty array, never null.
func Data(w http.ResponseWriter, r *http.Request, items interface{}) {
	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"data":   items,
	})
}

// Error writes an error response with the given HTTP status.
func Error(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, r, status, errorBody{Status: "error", Message: message})
}

// BadRequest writes a 400 Bad Request error response.
func BadRequest(w http.ResponseWriter, r *http.Request, message string) {
	Error(w, r, http.StatusBadRequest, message)
}

// Unauthorized writes a 401 Unauthorized error response.
func Unauthorized(w http.ResponseWriter, r *http.Request, message string) {
	Error(w, r, http.StatusUnauthorized, message)
}

// NotFound writes a 404 Not Found error response.
func NotFound(w http.ResponseWriter, r *http.Request, message string) {
	Error(w, r, http.StatusNotFound, message)
}

// MethodNotAllowed writes a 405 Method Not Allowed error response.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	Error(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

// RateLimitInfo contains rate limit information for 429 responses.
type RateLimitInfo struct {
	// Limit is the maximum number of requests allowed in the window.
	Limit int
	// Remaining is the number of requests remaining in the current window.
	Remaining int
	// ResetAt is the Unix timestamp when the rate limit window resets.
	ResetAt int64
	// RetryAfter is the number of seconds until the client should retry.
	RetryAfter int
}

// TooManyRequests writes a 429 Too Many Requests error response.
func TooManyRequests(w http.ResponseWriter, r *http.Request, message string) {
	TooManyRequestsWithInfo(w, r, message, nil)
}

// TooManyRequestsWithInfo writes a 429 Too Many Requests error response with rate limit headers.
func TooManyRequestsWithInfo(w http.ResponseWriter, r *http.Request, message string, info *RateLimitInfo) {
	if info != nil {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetAt, 10))
		if info.RetryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(info.RetryAfter))
		}
	}
	Error(w, r, http.StatusTooManyRequests, message)
}

// InternalError writes a 500 Internal Server Error response.
func InternalError(w http.ResponseWriter, r *http.Request, message string) {
	Error(w, r, http.StatusInternalServerError, message)
}

// ServiceUnavailable writes a 503 Service Unavailable error response.
func ServiceUnavailable(w http.ResponseWriter, r *http.Request, message string) {
	Error(w, r, http.StatusServiceUnavailable, message)
}
