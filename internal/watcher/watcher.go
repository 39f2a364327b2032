// Package watcher reloads the configuration file when it changes on disk.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sydlexius/crossfade/internal/config"
)

// LoadFunc reads and validates a config file.
type LoadFunc func(path string) (*config.Config, error)

// ConfigWatcher watches a single config file and hands every successfully
// reloaded config to a callback. Invalid files are logged and skipped; the
// previous config stays in effect.
type ConfigWatcher struct {
	path     string
	load     LoadFunc
	onChange func(*config.Config)
	logger   *slog.Logger
	debounce time.Duration
	poll     time.Duration
}

// NewConfigWatcher creates a watcher for path. load is usually config.Load.
func NewConfigWatcher(path string, load LoadFunc, onChange func(*config.Config), logger *slog.Logger) *ConfigWatcher {
	return &ConfigWatcher{
		path:     path,
		load:     load,
		onChange: onChange,
		logger:   logger.With(slog.String("component", "config-watcher")),
		debounce: 500 * time.Millisecond,
		poll:     30 * time.Second,
	}
}

// SetDebounce overrides the default debounce interval (for testing).
func (w *ConfigWatcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// SetPollInterval overrides the interval used when fsnotify is unavailable.
func (w *ConfigWatcher) SetPollInterval(d time.Duration) {
	w.poll = d
}

// Start blocks until ctx is canceled. The file's directory is watched rather
// than the file so that editors which replace the file by rename are seen.
// If fsnotify is unavailable the watcher falls back to polling mtime.
func (w *ConfigWatcher) Start(ctx context.Context) {
	abs, err := filepath.Abs(w.path)
	if err != nil {
		w.logger.Error("resolving config path", slog.String("path", w.path), slog.String("error", err.Error()))
		return
	}

	var eventCh <-chan fsnotify.Event
	var errCh <-chan error
	var pollCh <-chan time.Time

	fw, err := fsnotify.NewWatcher()
	if err == nil {
		err = fw.Add(filepath.Dir(abs))
	}
	if err != nil {
		w.logger.Warn("fsnotify unavailable, polling config file",
			slog.String("error", err.Error()),
			slog.Duration("interval", w.poll))
		if fw != nil {
			fw.Close() //nolint:errcheck
		}
		ticker := time.NewTicker(w.poll)
		defer ticker.Stop()
		pollCh = ticker.C
	} else {
		defer fw.Close() //nolint:errcheck
		eventCh = fw.Events
		errCh = fw.Errors
	}

	lastMod := modTime(abs)
	w.logger.Info("config watcher starting", slog.String("path", abs))

	// Starts stopped; reset on each relevant event.
	debounceTimer := time.NewTimer(0)
	if !debounceTimer.Stop() {
		<-debounceTimer.C
	}
	defer debounceTimer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("config watcher stopping")
			return

		case ev, ok := <-eventCh:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			resetTimer(debounceTimer, w.debounce)

		case err, ok := <-errCh:
			if !ok {
				return
			}
			w.logger.Error("fsnotify error", slog.String("error", err.Error()))

		case <-pollCh:
			if mod := modTime(abs); !mod.Equal(lastMod) {
				lastMod = mod
				resetTimer(debounceTimer, w.debounce)
			}

		case <-debounceTimer.C:
			w.reload()
		}
	}
}

func (w *ConfigWatcher) reload() {
	cfg, err := w.load(w.path)
	if err != nil {
		w.logger.Error("config reload failed, keeping previous config",
			slog.String("path", w.path),
			slog.String("error", err.Error()))
		return
	}
	w.logger.Info("config reloaded", slog.String("path", w.path))
	w.onChange(cfg)
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}

func modTime(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}
