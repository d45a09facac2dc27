package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

type contextKey string

const GoogleTokenKey contextKey = "google_token"

// GoogleBearer requires an "Authorization: Bearer <token>" header carrying
// the caller's Google access token and attaches it to the context. The token
// is passed through to Google unchecked; Google decides whether it is valid.
func GoogleBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Extract Authorization header
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Sign in with Google before exporting", r)
			return
		}

		// Must be Bearer format
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid authorization format", r)
			return
		}

		ctx := context.WithValue(r.Context(), GoogleTokenKey, strings.TrimSpace(parts[1]))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetGoogleToken extracts the bearer token from request context
func GetGoogleToken(ctx context.Context) string {
	tok, _ := ctx.Value(GoogleTokenKey).(string)
	return tok
}

func writeError(w http.ResponseWriter, status int, code, message string, r *http.Request) {
	requestID := r.Header.Get(RequestIDHeader)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{
			"code":       code,
			"message":    message,
			"request_id": requestID,
		},
	})
}
