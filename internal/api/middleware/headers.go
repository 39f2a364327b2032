package middleware

import "net/http"

// APIHeaders sets response headers for JSON endpoints served by crossfade
// itself. Proxied responses keep their upstream headers.
func APIHeaders(serverName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("Cache-Control", "no-store")
			if serverName != "" {
				w.Header().Set("Server", serverName)
			}
			next.ServeHTTP(w, r)
		})
	}
}
