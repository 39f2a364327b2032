package middleware

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// scrubPatterns are substrings that mark a query parameter as sensitive.
// Scrobbler calls carry api_key and sk in the query string.
var scrubPatterns = []string{"apikey", "api_key", "api_sig", "sk", "password", "secret", "token"}

// Logging returns middleware that logs each request once it completes. The
// request context is passed to the logger so the request id is attached.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(sw, r)

			level := slog.LevelInfo
			if sw.status >= http.StatusInternalServerError {
				level = slog.LevelWarn
			}
			logger.LogAttrs(r.Context(), level, "http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("query", scrubQuery(r.URL.RawQuery)),
				slog.Int("status", sw.status),
				slog.Int64("bytes", sw.written),
				slog.Duration("duration", time.Since(start)),
				slog.String("remote", clientIP(r)),
			)
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status      int
	written     int64
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	n, err := w.ResponseWriter.Write(b)
	w.written += int64(n)
	return n, err
}

// Flush lets streamed proxy responses through.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// scrubQuery redacts the values of sensitive query parameters.
func scrubQuery(raw string) string {
	if raw == "" {
		return ""
	}

	parts := strings.Split(raw, "&")
	for i, part := range parts {
		key, _, found := strings.Cut(part, "=")
		if !found {
			continue
		}
		if isSensitive(key) {
			parts[i] = key + "=REDACTED"
		}
	}
	return strings.Join(parts, "&")
}

func isSensitive(key string) bool {
	if unescaped, err := url.QueryUnescape(key); err == nil {
		key = unescaped
	}
	lower := strings.ToLower(key)
	for _, pattern := range scrubPatterns {
		if pattern == "sk" {
			if lower == "sk" {
				return true
			}
			continue
		}
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}
