package httpapi

import (
	"crypto/subtle"
	"net/http"

	"salon-agent/internal/config"
)

// SupervisorBasicAuth protects the console routes. The source system
// shipped without any authentication; this closes that gap with HTTP Basic
// credentials from the config.
func SupervisorBasicAuth(cfg *config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Admin.BasicUser == "" && cfg.Admin.BasicPass == "" {
				// Auth not configured; useful for local development.
				next.ServeHTTP(w, r)
				return
			}

			user, pass, ok := r.BasicAuth()
			if !ok ||
				subtle.ConstantTimeCompare([]byte(user), []byte(cfg.Admin.BasicUser)) != 1 ||
				subtle.ConstantTimeCompare([]byte(pass), []byte(cfg.Admin.BasicPass)) != 1 {
				w.Header().Set("WWW-Authenticate", `Basic realm="supervisor"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
