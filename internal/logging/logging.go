// Package logging builds the process-wide slog logger. The handler behind the
// logger can be rebuilt at runtime so that a config reload changes level,
// format or file output without restarting the server.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	defaultMaxSizeMB  = 100
	defaultMaxFiles   = 3
	defaultMaxAgeDays = 30
)

// Config describes the desired logging configuration.
type Config struct {
	Level          string `yaml:"level"`
	Format         string `yaml:"format"`
	FilePath       string `yaml:"file_path"`
	FileMaxSizeMB  int    `yaml:"file_max_size_mb"`
	FileMaxFiles   int    `yaml:"file_max_files"`
	FileMaxAgeDays int    `yaml:"file_max_age_days"`
}

// DefaultConfig returns info-level JSON logging to stdout.
func DefaultConfig() Config {
	return Config{
		Level:          "info",
		Format:         "json",
		FileMaxSizeMB:  defaultMaxSizeMB,
		FileMaxFiles:   defaultMaxFiles,
		FileMaxAgeDays: defaultMaxAgeDays,
	}
}

// String returns a human-readable summary of the config.
func (c Config) String() string {
	s := fmt.Sprintf("level=%s format=%s", c.Level, c.Format)
	if c.FilePath != "" {
		s += fmt.Sprintf(" file=%s max_size=%dMB max_files=%d max_age=%dd",
			c.FilePath, c.FileMaxSizeMB, c.FileMaxFiles, c.FileMaxAgeDays)
	}
	return s
}

// outputChanged reports whether moving from c to next requires a new handler.
// A level change alone does not.
func (c Config) outputChanged(next Config) bool {
	return !strings.EqualFold(c.Format, next.Format) ||
		c.FilePath != next.FilePath ||
		c.FileMaxSizeMB != next.FileMaxSizeMB ||
		c.FileMaxFiles != next.FileMaxFiles ||
		c.FileMaxAgeDays != next.FileMaxAgeDays
}

// SwappableHandler is a slog.Handler whose inner handler can be replaced
// while loggers derived from it are in use. Handlers produced by WithAttrs
// and WithGroup follow later swaps.
type SwappableHandler struct {
	root *atomic.Pointer[slog.Handler]
	ops  []handlerOp
}

// handlerOp is one WithGroup or WithAttrs call, replayed on the inner handler.
type handlerOp struct {
	group string
	attrs []slog.Attr
}

// NewSwappableHandler creates a SwappableHandler wrapping h.
func NewSwappableHandler(h slog.Handler) *SwappableHandler {
	root := &atomic.Pointer[slog.Handler]{}
	root.Store(&h)
	return &SwappableHandler{root: root}
}

// Swap replaces the inner handler for this handler and every handler
// derived from it.
func (s *SwappableHandler) Swap(h slog.Handler) {
	s.root.Store(&h)
}

func (s *SwappableHandler) current() slog.Handler {
	h := *s.root.Load()
	for _, op := range s.ops {
		if op.group != "" {
			h = h.WithGroup(op.group)
		} else {
			h = h.WithAttrs(op.attrs)
		}
	}
	return h
}

func (s *SwappableHandler) with(op handlerOp) *SwappableHandler {
	ops := make([]handlerOp, 0, len(s.ops)+1)
	ops = append(ops, s.ops...)
	ops = append(ops, op)
	return &SwappableHandler{root: s.root, ops: ops}
}

// Enabled delegates to the inner handler.
func (s *SwappableHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return (*s.root.Load()).Enabled(ctx, level)
}

// Handle adds the request id carried by ctx, if any, and delegates.
func (s *SwappableHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := RequestIDFromContext(ctx); id != "" {
		r = r.Clone()
		r.AddAttrs(slog.String("request_id", id))
	}
	return s.current().Handle(ctx, r)
}

// WithAttrs returns a handler that adds attrs to every record.
func (s *SwappableHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return s
	}
	return s.with(handlerOp{attrs: attrs})
}

// WithGroup returns a handler that nests later attrs under name.
func (s *SwappableHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return s
	}
	return s.with(handlerOp{group: name})
}

// Manager owns the logger lifecycle.
type Manager struct {
	mu       sync.Mutex
	levelVar *slog.LevelVar
	handler  *SwappableHandler
	config   Config
	file     io.Closer
}

// NewManager creates a Manager and the logger it controls.
func NewManager(cfg Config) (*Manager, *slog.Logger) {
	lvl := &slog.LevelVar{}
	lvl.Set(ParseLevel(cfg.Level))

	w, file := openOutput(cfg)
	m := &Manager{
		levelVar: lvl,
		handler:  NewSwappableHandler(newHandler(w, lvl, cfg.Format)),
		config:   cfg,
		file:     file,
	}
	return m, slog.New(m.handler)
}

// Reconfigure applies cfg. The level changes in place; a new format or file
// target rebuilds the handler and closes the previous log file.
func (m *Manager) Reconfigure(cfg Config) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.levelVar.Set(ParseLevel(cfg.Level))

	if m.config.outputChanged(cfg) {
		if m.file != nil {
			m.file.Close() //nolint:errcheck
			m.file = nil
		}
		w, file := openOutput(cfg)
		m.handler.Swap(newHandler(w, m.levelVar, cfg.Format))
		m.file = file
	}
	m.config = cfg
}

// Config returns the active configuration.
func (m *Manager) Config() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config
}

// Level returns the active level.
func (m *Manager) Level() slog.Level {
	return m.levelVar.Level()
}

// Close releases the log file, if any. It is safe to call more than once.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.file == nil {
		return nil
	}
	err := m.file.Close()
	m.file = nil
	return err
}

// ParseLevel converts a level name to slog.Level. Unknown names map to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ValidLevel reports whether s is a recognized level name.
func ValidLevel(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}

// ValidFormat reports whether s is a recognized output format.
func ValidFormat(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "json":
		return true
	}
	return false
}

// openOutput returns stdout, or stdout teed into a rotating file when a file
// path is set. The second value closes the file.
func openOutput(cfg Config) (io.Writer, io.Closer) {
	if cfg.FilePath == "" {
		return os.Stdout, nil
	}
	lj := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    orDefault(cfg.FileMaxSizeMB, defaultMaxSizeMB),
		MaxBackups: orDefault(cfg.FileMaxFiles, defaultMaxFiles),
		MaxAge:     orDefault(cfg.FileMaxAgeDays, defaultMaxAgeDays),
	}
	return io.MultiWriter(os.Stdout, lj), lj
}

func newHandler(w io.Writer, leveler slog.Leveler, format string) slog.Handler {
	opts := &slog.HandlerOptions{Level: leveler}
	if strings.EqualFold(format, "text") {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
