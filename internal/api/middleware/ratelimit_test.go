package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func hit(h http.Handler, remote string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/search?query=queen", nil)
	req.RemoteAddr = remote
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestClientRateLimiter_AllowsBurst(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	handler := NewClientRateLimiter(ctx, 1, 5).Middleware(okHandler())

	for i := 0; i < 5; i++ {
		if w := hit(handler, "203.0.113.1:1234"); w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want %d", i+1, w.Code, http.StatusOK)
		}
	}
}

func TestClientRateLimiter_BlocksAfterBurst(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	handler := NewClientRateLimiter(ctx, 0.1, 3).Middleware(okHandler())

	for i := 0; i < 3; i++ {
		hit(handler, "203.0.113.2:1234")
	}

	w := hit(handler, "203.0.113.2:1234")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
	if got := w.Header().Get("Retry-After"); got != "10" {
		t.Errorf("Retry-After = %q, want 10", got)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
}

func TestClientRateLimiter_DifferentIPsIndependent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	handler := NewClientRateLimiter(ctx, 0.1, 2).Middleware(okHandler())

	for i := 0; i < 2; i++ {
		hit(handler, "203.0.113.3:1234")
	}
	if w := hit(handler, "203.0.113.4:1234"); w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (different IP should not be rate limited)", w.Code, http.StatusOK)
	}
}

func TestClientRateLimiter_EvictsStaleClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rl := NewClientRateLimiter(ctx, 10, 10)
	handler := rl.Middleware(okHandler())

	hit(handler, "203.0.113.5:1234")
	hit(handler, "203.0.113.6:1234")
	if rl.Len() != 2 {
		t.Fatalf("tracked = %d, want 2", rl.Len())
	}

	rl.evict(time.Now().Add(time.Minute))
	if rl.Len() != 0 {
		t.Errorf("tracked = %d after evict, want 0", rl.Len())
	}
}

func TestClientIP_DirectConnection(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.5:1234"

	if got := clientIP(req); got != "203.0.113.5" {
		t.Errorf("clientIP = %q, want %q", got, "203.0.113.5")
	}
}

func TestClientIP_XFFFromPrivateProxy(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "127.0.0.1:1234"
	req.Header.Set("X-Forwarded-For", "203.0.113.10, 10.0.0.1")

	if got := clientIP(req); got != "10.0.0.1" {
		t.Errorf("clientIP = %q, want %q", got, "10.0.0.1")
	}
}

func TestClientIP_XFFIgnoredFromPublicIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.5:1234"
	req.Header.Set("X-Forwarded-For", "198.51.100.1")

	if got := clientIP(req); got != "203.0.113.5" {
		t.Errorf("clientIP = %q, want %q (XFF should be ignored for public remote)", got, "203.0.113.5")
	}
}

func TestClientIP_XRealIPFromPrivateProxy(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.1:1234"
	req.Header.Set("X-Real-Ip", "203.0.113.20")

	if got := clientIP(req); got != "203.0.113.20" {
		t.Errorf("clientIP = %q, want %q", got, "203.0.113.20")
	}
}

func TestIsPrivateIP(t *testing.T) {
	tests := []struct {
		ip   string
		want bool
	}{
		{"127.0.0.1", true},
		{"10.0.0.1", true},
		{"192.168.1.1", true},
		{"172.16.0.1", true},
		{"203.0.113.1", false},
		{"8.8.8.8", false},
		{"not-an-ip", false},
		{"::1", true},
	}
	for _, tt := range tests {
		if got := isPrivateIP(tt.ip); got != tt.want {
			t.Errorf("isPrivateIP(%q) = %v, want %v", tt.ip, got, tt.want)
		}
	}
}
