package logx

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// ParseLevel converts debug|info|warn|error to a slog.Level. Unknown → info.
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

// New builds a logger writing to w in text or json format.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// NewDefault logs to stderr.
func NewDefault(level, format string) *slog.Logger {
	return New(os.Stderr, level, format)
}

// SymbolLoggers hands out one logger per security, each writing to its own
// size-rotated file under Dir. With an empty Dir every logger is the base
// logger tagged with the symbol.
type SymbolLoggers struct {
	Dir   string
	Level string
	base  *slog.Logger

	mu    sync.Mutex
	files map[string]*lumberjack.Logger
	cache map[string]*slog.Logger
}

// NewSymbolLoggers creates the factory. Files are opened lazily.
func NewSymbolLoggers(dir, level string, base *slog.Logger) *SymbolLoggers {
	if base == nil {
		base = slog.Default()
	}
	return &SymbolLoggers{
		Dir:   dir,
		Level: level,
		base:  base,
		files: make(map[string]*lumberjack.Logger),
		cache: make(map[string]*slog.Logger),
	}
}

// For returns the logger of one security, creating it on first use.
func (f *SymbolLoggers) For(code, name string) *slog.Logger {
	if f.Dir == "" {
		return f.base.With("symbol", code, "name", name)
	}
	key := code + "_" + sanitize(name)

	f.mu.Lock()
	defer f.mu.Unlock()
	if l, ok := f.cache[key]; ok {
		return l
	}
	w := &lumberjack.Logger{
		Filename:   filepath.Join(f.Dir, key+".log"),
		MaxSize:    10, // MB
		MaxBackups: 5,
	}
	l := New(w, f.Level, "text").With("symbol", code, "name", name)
	f.files[key] = w
	f.cache[key] = l
	return l
}

// Close closes every open log file.
func (f *SymbolLoggers) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var first error
	for key, w := range f.files {
		if err := w.Close(); err != nil && first == nil {
			first = err
		}
		delete(f.files, key)
		delete(f.cache, key)
	}
	return first
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, name)
}
