package middleware

import (
	"encoding/json"
	"net/http"
)

// writeError writes an error envelope directly. The response package
// depends on this one for request IDs, so middleware cannot import it.
func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	if requestID := GetRequestID(r.Context()); requestID != "" {
		w.Header().Set("X-Request-Id", requestID)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":  "error",
		"message": message,
	})
}
