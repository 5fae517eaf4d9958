// Package logger provides the structured, levelled logger shared by every
// mvnet package.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level represents a logging verbosity level.
type Level int

const (
	// LevelDebug emits every message, including DEBUG.
	LevelDebug Level = iota
	// LevelInfo emits INFO, WARN and ERROR messages.
	LevelInfo
	// LevelWarn emits WARN and ERROR messages.
	LevelWarn
	// LevelError emits only ERROR messages.
	LevelError
)

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Logger is a structured, levelled logger backed by a zap.SugaredLogger.
//
// A nil *Logger is valid and every method on it is a no-op, so callers
// throughout the engine (client, wire, keepalive, proxydial, …) can hold an
// optional *Logger field and log unconditionally without a nil check.
type Logger struct {
	sugar *zap.SugaredLogger
	atom  zap.AtomicLevel
}

// New creates a Logger that writes JSON-structured entries to stderr at the
// given minimum level.
func New(level Level) *Logger {
	atom := zap.NewAtomicLevelAt(level.zapLevel())
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(zapcore.NewJSONEncoder(cfg), zapcore.Lock(zapcore.AddSync(os.Stderr)), atom)
	return &Logger{
		sugar: zap.New(core).Sugar(),
		atom:  atom,
	}
}

// Nop returns a Logger that discards everything. Useful as a default when no
// logger was configured.
func Nop() *Logger {
	return &Logger{sugar: zap.NewNop().Sugar(), atom: zap.NewAtomicLevelAt(zapcore.FatalLevel + 1)}
}

// SetLevel changes the minimum log level at runtime. Safe for concurrent use
// (backed by zap.AtomicLevel).
func (l *Logger) SetLevel(level Level) {
	if l == nil {
		return
	}
	l.atom.SetLevel(level.zapLevel())
}

// Debug logs a message at DEBUG level with optional structured key/value pairs.
func (l *Logger) Debug(msg string, kv ...interface{}) {
	if l == nil {
		return
	}
	l.sugar.Debugw(msg, kv...)
}

// Debugf logs a formatted message at DEBUG level.
func (l *Logger) Debugf(format string, args ...interface{}) {
	if l == nil {
		return
	}
	l.sugar.Debugf(format, args...)
}

// Info logs a message at INFO level with optional structured key/value pairs.
func (l *Logger) Info(msg string, kv ...interface{}) {
	if l == nil {
		return
	}
	l.sugar.Infow(msg, kv...)
}

// Infof logs a formatted message at INFO level.
func (l *Logger) Infof(format string, args ...interface{}) {
	if l == nil {
		return
	}
	l.sugar.Infof(format, args...)
}

// Warn logs a message at WARN level with optional structured key/value pairs.
func (l *Logger) Warn(msg string, kv ...interface{}) {
	if l == nil {
		return
	}
	l.sugar.Warnw(msg, kv...)
}

// Warnf logs a formatted message at WARN level.
func (l *Logger) Warnf(format string, args ...interface{}) {
	if l == nil {
		return
	}
	l.sugar.Warnf(format, args...)
}

// Error logs a message at ERROR level with optional structured key/value pairs.
func (l *Logger) Error(msg string, kv ...interface{}) {
	if l == nil {
		return
	}
	l.sugar.Errorw(msg, kv...)
}

// Errorf logs a formatted message at ERROR level.
func (l *Logger) Errorf(format string, args ...interface{}) {
	if l == nil {
		return
	}
	l.sugar.Errorf(format, args...)
}

// Sync flushes any buffered log entries. Call before process exit.
func (l *Logger) Sync() error {
	if l == nil {
		return nil
	}
	return l.sugar.Sync()
}
