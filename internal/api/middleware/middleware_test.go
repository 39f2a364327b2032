package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sydlexius/crossfade/internal/logging"
)

func TestRequestID_Generated(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logging.RequestIDFromContext(r.Context())
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	if seen == "" {
		t.Fatal("expected request id in context")
	}
	if got := w.Header().Get(RequestIDHeader); got != seen {
		t.Errorf("response header = %q, context = %q", got, seen)
	}
	if len(seen) != 36 {
		t.Errorf("expected a UUID, got %q", seen)
	}
}

func TestRequestID_Honored(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logging.RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "from-client")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "from-client" {
		t.Errorf("request id = %q, want from-client", seen)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, strings.Repeat("x", 500))
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if len(seen) != 36 {
		t.Errorf("expected oversized id replaced, got %d chars", len(seen))
	}
}

func TestLogging_ScrubsAndTagsRequest(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(logging.NewSwappableHandler(slog.NewJSONHandler(&buf, nil)))

	handler := RequestID(Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short")) //nolint:errcheck
	})))

	req := httptest.NewRequest(http.MethodGet, "/scrobbler/?method=track.scrobble&api_key=abc&sk=sess&artist=Cher", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decoding log line %q: %v", buf.String(), err)
	}
	query, _ := rec["query"].(string)
	if strings.Contains(query, "abc") || strings.Contains(query, "sess") {
		t.Errorf("secret leaked into log: %q", query)
	}
	if !strings.Contains(query, "artist=Cher") {
		t.Errorf("non-secret parameter dropped: %q", query)
	}
	if rec["status"] != float64(http.StatusTeapot) {
		t.Errorf("status = %v, want 418", rec["status"])
	}
	if rec["bytes"] != float64(5) {
		t.Errorf("bytes = %v, want 5", rec["bytes"])
	}
	if rec["request_id"] != "req-42" {
		t.Errorf("request_id = %v, want req-42", rec["request_id"])
	}
}

func TestScrubQuery(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"query=queen", "query=queen"},
		{"api_key=abc&format=json", "api_key=REDACTED&format=json"},
		{"apiKey=abc", "apiKey=REDACTED"},
		{"sk=abc&skip=1", "sk=REDACTED&skip=1"},
		{"api%5Fkey=abc", "api%5Fkey=REDACTED"},
		{"flag", "flag"},
	}
	for _, tt := range tests {
		if got := scrubQuery(tt.in); got != tt.want {
			t.Errorf("scrubQuery(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAPIHeaders(t *testing.T) {
	handler := APIHeaders("crossfade/dev")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing nosniff")
	}
	if w.Header().Get("Server") != "crossfade/dev" {
		t.Errorf("Server = %q", w.Header().Get("Server"))
	}
}
