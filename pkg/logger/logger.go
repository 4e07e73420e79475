package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	DEBUG int = iota
	INFO
	WARNING
	ERROR
	SILENCE
)

type Logger interface {
	Debugf(msg string, a ...any)
	Infof(msg string, a ...any)
	Warnf(msg string, a ...any)
	Errorf(msg string, a ...any)
}

type defaultLogger struct {
	level int
	inner *zap.SugaredLogger
}

// NewLogger returns a production logger writing JSON lines to stderr.
func NewLogger(level int) *defaultLogger {
	return newLogger(level, zap.NewProductionConfig())
}

// NewDevelopmentLogger returns a logger with human-readable console output.
func NewDevelopmentLogger(level int) *defaultLogger {
	return newLogger(level, zap.NewDevelopmentConfig())
}

func newLogger(level int, cfg zap.Config) *defaultLogger {
	cfg.Level = zap.NewAtomicLevelAt(zapLevel(level))
	cfg.DisableStacktrace = true

	inner, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		inner = zap.NewNop()
	}

	return &defaultLogger{level: level, inner: inner.Sugar()}
}

// ParseLevel converts a textual level (debug, info, warn, error, silence) to
// its numeric value. Unknown values fall back to INFO.
func ParseLevel(s string) int {
	switch s {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARNING
	case "error":
		return ERROR
	case "silence":
		return SILENCE
	}

	return INFO
}

func zapLevel(level int) zapcore.Level {
	switch level {
	case DEBUG:
		return zapcore.DebugLevel
	case INFO:
		return zapcore.InfoLevel
	case WARNING:
		return zapcore.WarnLevel
	case ERROR:
		return zapcore.ErrorLevel
	}

	return zapcore.FatalLevel
}

func (l *defaultLogger) Debugf(msg string, a ...any) {
	if l.level <= DEBUG {
		l.inner.Debugf(msg, a...)
	}
}

func (l *defaultLogger) Infof(msg string, a ...any) {
	if l.level <= INFO {
		l.inner.Infof(msg, a...)
	}
}

func (l *defaultLogger) Warnf(msg string, a ...any) {
	if l.level <= WARNING {
		l.inner.Warnf(msg, a...)
	}
}

func (l *defaultLogger) Errorf(msg string, a ...any) {
	if l.level <= ERROR {
		l.inner.Errorf(msg, a...)
	}
}

// Sync flushes buffered log entries.
func (l *defaultLogger) Sync() error {
	return l.inner.Sync()
}
