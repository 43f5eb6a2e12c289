package middleware

import (
	"crypto/hmac"
	"net/http"
	"strings"
)

// BearerAuth returns middleware that validates a Bearer token in the
// Authorization header. Guards the management API, not the Slack webhook.
func BearerAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				http.Error(w, "api disabled: no token configured", http.StatusUnauthorized)
				return
			}

			authHeader := r.Header.Get("Authorization")
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				http.Error(w, "invalid authorization header", http.StatusUnauthorized)
				return
			}

			provided := strings.TrimSpace(parts[1])
			if !hmac.Equal([]byte(provided), []byte(token)) {
				http.Error(w, "invalid bearer token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
