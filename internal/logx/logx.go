// Package logx wraps charmbracelet/log behind a small interface so the
// engine never depends on a concrete logging backend directly.
package logx

import (
	"context"
	"io"
	"os"

	charmlog "github.com/charmbracelet/log"
)

// Logger is the minimal surface the engine needs from a logging backend.
type Logger interface {
	Debug(msg string, keyvals ...any)
	Info(msg string, keyvals ...any)
	Warn(msg string, keyvals ...any)
	Error(msg string, keyvals ...any)
	With(keyvals ...any) Logger
}

type charmLogger struct {
	l *charmlog.Logger
}

func (c *charmLogger) Debug(msg string, keyvals ...any) { c.l.Debug(msg, keyvals...) }
func (c *charmLogger) Info(msg string, keyvals ...any)  { c.l.Info(msg, keyvals...) }
func (c *charmLogger) Warn(msg string, keyvals ...any)  { c.l.Warn(msg, keyvals...) }
func (c *charmLogger) Error(msg string, keyvals ...any) { c.l.Error(msg, keyvals...) }

func (c *charmLogger) With(keyvals ...any) Logger {
	return &charmLogger{l: c.l.With(keyvals...)}
}

// Config controls how a Logger is constructed.
type Config struct {
	Level  charmlog.Level
	Output io.Writer
	JSON   bool
}

// TestConfig returns a Config suitable for unit tests: error level only,
// with output discarded.
func TestConfig() Config {
	return Config{Level: charmlog.ErrorLevel, Output: io.Discard}
}

// NewLogger builds a Logger from Config, defaulting to stderr/Info.
func NewLogger(cfg Config) Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := charmlog.Options{ReportTimestamp: true}
	if cfg.JSON {
		opts.Formatter = charmlog.JSONFormatter
	}
	l := charmlog.NewWithOptions(out, opts)
	l.SetLevel(cfg.Level)
	return &charmLogger{l: l}
}

type ctxKey struct{}

// LoggerCtxKey is the context key logger values are stored under.
var LoggerCtxKey = ctxKey{}

var defaultLogger = NewLogger(Config{Level: charmlog.InfoLevel})

// ContextWithLogger returns a copy of ctx carrying l.
func ContextWithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, LoggerCtxKey, l)
}

// FromContext returns the Logger stored in ctx, or a default logger when
// absent or of the wrong type.
func FromContext(ctx context.Context) Logger {
	if ctx == nil {
		return defaultLogger
	}
	v := ctx.Value(LoggerCtxKey)
	if l, ok := v.(Logger); ok && l != nil {
		return l
	}
	return defaultLogger
}
