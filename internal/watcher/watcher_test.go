package watcher

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sydlexius/crossfade/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type recorder struct {
	mu      sync.Mutex
	configs []*config.Config
}

func (r *recorder) onChange(cfg *config.Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs = append(r.configs, cfg)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.configs)
}

func (r *recorder) last() *config.Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.configs) == 0 {
		return nil
	}
	return r.configs[len(r.configs)-1]
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestWriteTriggersReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "logging:\n  level: info\n")

	rec := &recorder{}
	w := NewConfigWatcher(path, config.Load, rec.onChange, testLogger())
	w.SetDebounce(50 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)
	time.Sleep(100 * time.Millisecond) // let watcher initialize

	writeFile(t, path, "logging:\n  level: debug\n")

	waitFor(t, func() bool { return rec.count() > 0 })
	if got := rec.last().Logging.Level; got != "debug" {
		t.Errorf("reloaded level = %q, want debug", got)
	}
}

func TestBurstOfWritesIsDebounced(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "")

	var loads atomic.Int32
	load := func(p string) (*config.Config, error) {
		loads.Add(1)
		return config.Load(p)
	}
	rec := &recorder{}
	w := NewConfigWatcher(path, load, rec.onChange, testLogger())
	w.SetDebounce(200 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)
	time.Sleep(100 * time.Millisecond)

	for i := 0; i < 5; i++ {
		writeFile(t, path, "server:\n  port: 9000\n")
		time.Sleep(10 * time.Millisecond)
	}

	waitFor(t, func() bool { return rec.count() > 0 })
	time.Sleep(300 * time.Millisecond)
	if n := loads.Load(); n != 1 {
		t.Errorf("loads = %d, want 1", n)
	}
}

func TestInvalidConfigKeepsPrevious(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "")

	var failures atomic.Int32
	load := func(p string) (*config.Config, error) {
		cfg, err := config.Load(p)
		if err != nil {
			failures.Add(1)
		}
		return cfg, err
	}
	rec := &recorder{}
	w := NewConfigWatcher(path, load, rec.onChange, testLogger())
	w.SetDebounce(50 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)
	time.Sleep(100 * time.Millisecond)

	writeFile(t, path, "resolver:\n  search_limit: 500\n")

	waitFor(t, func() bool { return failures.Load() > 0 })
	if rec.count() != 0 {
		t.Errorf("callback invoked %d times for invalid config", rec.count())
	}
}

func TestOtherFilesIgnored(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "")

	var loads atomic.Int32
	load := func(p string) (*config.Config, error) {
		loads.Add(1)
		return nil, errors.New("unexpected load")
	}
	w := NewConfigWatcher(path, load, func(*config.Config) {}, testLogger())
	w.SetDebounce(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)
	time.Sleep(100 * time.Millisecond)

	writeFile(t, filepath.Join(dir, "other.yaml"), "x: 1\n")
	time.Sleep(200 * time.Millisecond)

	if n := loads.Load(); n != 0 {
		t.Errorf("loads = %d, want 0", n)
	}
}

func TestStartStopsOnCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "")

	w := NewConfigWatcher(path, config.Load, func(*config.Config) {}, testLogger())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop after cancel")
	}
}
