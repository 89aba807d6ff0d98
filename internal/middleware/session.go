package middleware

import (
	"log/slog"
	"net/http"
	"strings"
)

// RequireSession redirects to target when active reports no session for the
// request. Requests that asked for JSON get a 401 instead.
func RequireSession(active func(r *http.Request) bool, target string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if active(r) {
				next.ServeHTTP(w, r)
				return
			}

			slog.Debug("Request without session", "path", r.URL.Path)
			if WantsJSON(r) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"login required"}`))
				return
			}
			http.Redirect(w, r, target, http.StatusSeeOther)
		})
	}
}

// WantsJSON reports whether the client prefers a JSON response.
func WantsJSON(r *http.Request) bool {
	for _, v := range r.Header.Values("Accept") {
		for _, part := range strings.Split(v, ",") {
			mediaType, _, _ := strings.Cut(part, ";")
			if strings.TrimSpace(mediaType) == "application/json" {
				return true
			}
		}
	}
	return false
}
