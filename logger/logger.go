package logger

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"sync"
)

// LogLevel defines the logging verbosity
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
	LogLevelNone  LogLevel = "none"
)

// Logger is the interface used by the engine for diagnostics.
// Cycle detection and per-member recovery log at Debug, scan summaries at Info.
type Logger interface {
	Debug(msg string)
	Info(msg string)
	Warn(msg string)
	Error(msg string)
	SetTag(tag string)
}

// simpleHandler is a simple log handler that outputs standard log format
type simpleHandler struct {
	level slog.Level
	w     io.Writer
	mu    sync.Mutex
}

func (h *simpleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *simpleHandler) Handle(_ context.Context, r slog.Record) error {
	timeStr := r.Time.Format("2006/01/02 15:04:05")
	level := r.Level.String()

	tag := "CORE"
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "tag" {
			tag = a.Value.String()
			return false
		}
		return true
	})

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := fmt.Fprintf(h.w, "%s [%s] %s %s\n", timeStr, tag, level, r.Message)
	return err
}

func (h *simpleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h
}

func (h *simpleHandler) WithGroup(name string) slog.Handler {
	return h
}

// SetupLogger configures the global logger based on the log level
func SetupLogger(level LogLevel) {
	var slogLevel slog.Level

	switch level {
	case LogLevelDebug:
		slogLevel = slog.LevelDebug
	case LogLevelInfo:
		slogLevel = slog.LevelInfo
	case LogLevelWarn:
		slogLevel = slog.LevelWarn
	case LogLevelError:
		slogLevel = slog.LevelError
	case LogLevelNone:
		// Set to a very high level to suppress all logs
		slogLevel = slog.Level(1000)
	default:
		slogLevel = slog.LevelInfo
	}

	// Use simple handler for cleaner output
	handler := &simpleHandler{
		level: slogLevel,
		w:     os.Stderr,
	}

	slog.SetDefault(slog.New(handler))

	// Also set the standard log package to use the same output
	log.SetOutput(os.Stderr)
	log.SetFlags(0)
}

// DefaultLogger implements Logger using slog, carrying a per-instance tag
type DefaultLogger struct {
	mu  sync.RWMutex
	tag string
}

func NewDefaultLogger() Logger {
	return &DefaultLogger{}
}

func (l *DefaultLogger) SetTag(tag string) {
	l.mu.Lock()
	l.tag = tag
	l.mu.Unlock()
}

func (l *DefaultLogger) tagAttr() slog.Attr {
	l.mu.RLock()
	defer l.mu.RUnlock()
	tag := l.tag
	if tag == "" {
		tag = "CORE"
	}
	return slog.String("tag", tag)
}

func (l *DefaultLogger) Debug(msg string) {
	slog.Debug(msg, l.tagAttr())
}

func (l *DefaultLogger) Info(msg string) {
	slog.Info(msg, l.tagAttr())
}

func (l *DefaultLogger) Warn(msg string) {
	slog.Warn(msg, l.tagAttr())
}

func (l *DefaultLogger) Error(msg string) {
	slog.Error(msg, l.tagAttr())
}

// NopLogger discards everything. Useful for tests.
type NopLogger struct{}

func NewNopLogger() Logger             { return &NopLogger{} }
func (l *NopLogger) Debug(msg string)  {}
func (l *NopLogger) Info(msg string)   {}
func (l *NopLogger) Warn(msg string)   {}
func (l *NopLogger) Error(msg string)  {}
func (l *NopLogger) SetTag(tag string) {}
