package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewManager_DefaultConfig(t *testing.T) {
	mgr, logger := NewManager(DefaultConfig())
	defer mgr.Close() //nolint:errcheck

	if logger == nil {
		t.Fatal("expected non-nil logger")
	}
	if mgr.Config().Level != "info" || mgr.Config().Format != "json" {
		t.Errorf("unexpected config %s", mgr.Config())
	}
	if mgr.Level() != slog.LevelInfo {
		t.Errorf("level = %v, want info", mgr.Level())
	}
}

func TestManager_LevelChange(t *testing.T) {
	mgr, logger := NewManager(Config{Level: "info", Format: "json"})
	defer mgr.Close() //nolint:errcheck
	ctx := context.Background()

	if logger.Enabled(ctx, slog.LevelDebug) {
		t.Error("expected debug to be disabled")
	}

	mgr.Reconfigure(Config{Level: "debug", Format: "json"})
	if !logger.Enabled(ctx, slog.LevelDebug) {
		t.Error("expected debug to be enabled after reconfigure")
	}

	mgr.Reconfigure(Config{Level: "error", Format: "json"})
	if logger.Enabled(ctx, slog.LevelInfo) {
		t.Error("expected info to be disabled at error level")
	}
}

func TestManager_FileOutputFollowsReconfigure(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.log")
	second := filepath.Join(dir, "second.log")

	mgr, logger := NewManager(Config{Level: "info", Format: "json", FilePath: first})
	// Derived loggers keep following the active handler.
	child := logger.With(slog.String("component", "resolver"))

	child.Info("before reload")
	mgr.Reconfigure(Config{Level: "info", Format: "text", FilePath: second})
	child.Info("after reload")

	if err := mgr.Close(); err != nil {
		t.Fatalf("closing manager: %v", err)
	}

	data, err := os.ReadFile(first)
	if err != nil {
		t.Fatalf("reading first log: %v", err)
	}
	if !strings.Contains(string(data), "before reload") || strings.Contains(string(data), "after reload") {
		t.Errorf("unexpected first log contents: %s", data)
	}

	data, err = os.ReadFile(second)
	if err != nil {
		t.Fatalf("reading second log: %v", err)
	}
	if !strings.Contains(string(data), "msg=\"after reload\"") || !strings.Contains(string(data), "component=resolver") {
		t.Errorf("unexpected second log contents: %s", data)
	}
}

func TestManager_CloseIdempotent(t *testing.T) {
	mgr, _ := NewManager(DefaultConfig())
	if err := mgr.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := mgr.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestSwappableHandler_RequestID(t *testing.T) {
	var buf bytes.Buffer
	h := NewSwappableHandler(slog.NewJSONHandler(&buf, nil))
	logger := slog.New(h).With(slog.String("component", "api"))

	ctx := WithRequestID(context.Background(), "req-123")
	logger.InfoContext(ctx, "handled")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decoding log line: %v", err)
	}
	if rec["request_id"] != "req-123" {
		t.Errorf("request_id = %v, want req-123", rec["request_id"])
	}
	if rec["component"] != "api" {
		t.Errorf("component = %v, want api", rec["component"])
	}
}

func TestSwappableHandler_GroupSurvivesSwap(t *testing.T) {
	var before, after bytes.Buffer
	h := NewSwappableHandler(slog.NewJSONHandler(&before, nil))
	logger := slog.New(h).WithGroup("upstream").With(slog.String("provider", "deezer"))

	h.Swap(slog.NewJSONHandler(&after, nil))
	logger.Info("call")

	if before.Len() != 0 {
		t.Errorf("expected old handler unused, got %s", before.String())
	}
	if !strings.Contains(after.String(), `"upstream":{"provider":"deezer"}`) {
		t.Errorf("unexpected output %s", after.String())
	}
}

func TestRequestIDFromContext_Missing(t *testing.T) {
	if id := RequestIDFromContext(context.Background()); id != "" {
		t.Errorf("expected empty id, got %q", id)
	}
}

func TestValidLevel(t *testing.T) {
	for _, l := range []string{"debug", "info", "warn", "error", "DEBUG", "warning"} {
		if !ValidLevel(l) {
			t.Errorf("expected %q to be valid", l)
		}
	}
	for _, l := range []string{"", "trace", "fatal"} {
		if ValidLevel(l) {
			t.Errorf("expected %q to be invalid", l)
		}
	}
}

func TestValidFormat(t *testing.T) {
	if !ValidFormat("text") || !ValidFormat("JSON") {
		t.Error("text and json should be valid")
	}
	if ValidFormat("xml") || ValidFormat("") {
		t.Error("xml and empty should be invalid")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in  string
		out slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"Info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"unknown", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.out {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.out)
		}
	}
}

func TestConfig_String(t *testing.T) {
	cfg := Config{Level: "info", Format: "json"}
	if s := cfg.String(); s != "level=info format=json" {
		t.Errorf("unexpected string: %s", s)
	}

	cfg.FilePath = "/var/log/crossfade.log"
	cfg.FileMaxSizeMB = 50
	cfg.FileMaxFiles = 5
	cfg.FileMaxAgeDays = 7
	want := "level=info format=json file=/var/log/crossfade.log max_size=50MB max_files=5 max_age=7d"
	if s := cfg.String(); s != want {
		t.Errorf("got %q, want %q", s, want)
	}
}
