package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/JonMunkholm/dbpatch/internal/config"
	"github.com/JonMunkholm/dbpatch/internal/logging"
)

// APIKeyAuth rejects API requests that do not carry one of the configured
// keys, either in X-API-Key or as an "Authorization: Bearer" token.
// With RequireAPIKey off every request passes. With it on and no keys
// configured every request fails; config validation refuses that setup.
func APIKeyAuth(cfg *config.SecurityConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.RequireAPIKey {
				next.ServeHTTP(w, r)
				return
			}

			key := requestKey(r)
			switch {
			case key == "":
				logging.FromContext(r.Context()).Warn("auth: missing API key", "remote_addr", r.RemoteAddr)
				writeAuthError(w, http.StatusUnauthorized, "An API key is required", "AUTH001")
			case !isValidAPIKey(key, cfg.APIKeys):
				logging.FromContext(r.Context()).Warn("auth: invalid API key", "remote_addr", r.RemoteAddr)
				writeAuthError(w, http.StatusForbidden, "The API key is not valid", "AUTH002")
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

// requestKey returns the key presented by the client, if any.
func requestKey(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get("X-API-Key")); key != "" {
		return key
	}
	const bearer = "Bearer "
	if auth := r.Header.Get("Authorization"); len(auth) > len(bearer) && strings.EqualFold(auth[:len(bearer)], bearer) {
		return strings.TrimSpace(auth[len(bearer):])
	}
	return ""
}

// isValidAPIKey compares key against every configured key in constant time,
// so the timing does not reveal which key matched.
func isValidAPIKey(key string, validKeys []string) bool {
	valid := 0
	for _, validKey := range validKeys {
		valid |= subtle.ConstantTimeCompare([]byte(key), []byte(validKey))
	}
	return valid == 1
}

// writeAuthError mirrors the JSON error body of the API handlers.
func writeAuthError(w http.ResponseWriter, status int, msg, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   msg,
		"message": msg,
		"action":  "Send the key in the X-API-Key header",
		"code":    code,
	})
}
