// Package logger provides structured logging for the launcher.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/obot-platform/redirect-launcher/launcher/internal/config"
	"github.com/obot-platform/redirect-launcher/launcher/internal/logfile"
)

// Logger wraps zap.Logger with launcher-specific methods.
type Logger struct {
	zap   *zap.Logger
	sugar *zap.SugaredLogger
	level zap.AtomicLevel
}

// New creates a new Logger from configuration.
func New(cfg config.LoggingConfig) (*Logger, error) {
	level := zap.NewAtomicLevelAt(parseLevel(cfg.Level))

	var encoder zapcore.Encoder
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if cfg.Format == "json" {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	var output zapcore.WriteSyncer
	if cfg.File != "" {
		if err := logfile.Truncate(cfg.File, cfg.MaxSize, cfg.KeepSize); err != nil {
			return nil, err
		}
		file, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
		if err != nil {
			return nil, err
		}
		output = zapcore.AddSync(file)
	} else {
		output = zapcore.AddSync(os.Stdout)
	}

	core := zapcore.NewCore(encoder, output, level)
	return newLogger(zap.New(core), level), nil
}

// FromZap wraps an existing zap logger. SetLevel has no effect on its core.
func FromZap(z *zap.Logger) *Logger {
	return newLogger(z, zap.NewAtomicLevelAt(zapcore.DebugLevel))
}

// Nop returns a Logger that discards everything.
func Nop() *Logger {
	return FromZap(zap.NewNop())
}

func newLogger(z *zap.Logger, level zap.AtomicLevel) *Logger {
	return &Logger{
		zap:   z,
		sugar: z.Sugar(),
		level: level,
	}
}

func parseLevel(s string) zapcore.Level {
	switch s {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// SetLevel changes the minimum enabled level at runtime.
func (l *Logger) SetLevel(level string) {
	l.level.SetLevel(parseLevel(level))
}

// Level returns the current minimum enabled level.
func (l *Logger) Level() string {
	return l.level.Level().String()
}

// With returns a child Logger that adds keysAndValues to every entry.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	sugar := l.sugar.With(keysAndValues...)
	return &Logger{
		zap:   sugar.Desugar(),
		sugar: sugar,
		level: l.level,
	}
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

// Info logs an info message.
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Infow(msg, keysAndValues...)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.sugar.Warnw(msg, keysAndValues...)
}

// Error logs an error message.
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, keysAndValues...)
}

// LogLaunch logs a started child process.
func (l *Logger) LogLaunch(path string, argv []string, pid int) {
	l.sugar.Infow("child process started",
		"path", path,
		"argv", argv,
		"pid", pid,
	)
}

// LogTransfer logs one successful pipe-to-file transfer.
func (l *Logger) LogTransfer(stream string, fd int, file string, n int) {
	l.sugar.Debugw("bytes transferred",
		"stream", stream,
		"pipe_fd", fd,
		"file", file,
		"bytes", n,
	)
}

// LogTransferError logs a failed transfer that ended a drain burst.
func (l *Logger) LogTransferError(stream string, fd int, file string, err error) {
	l.sugar.Warnw("transfer failed",
		"stream", stream,
		"pipe_fd", fd,
		"file", file,
		"error", err,
	)
}

// LogChildExit logs a child that ran to completion.
func (l *Logger) LogChildExit(pid int, code int) {
	l.sugar.Infow("child process finished",
		"pid", pid,
		"exit_code", code,
	)
}

// LogChildAbnormal logs a child that was terminated rather than exiting.
func (l *Logger) LogChildAbnormal(pid int, status string) {
	l.sugar.Warnw("child process finished abnormally",
		"pid", pid,
		"status", status,
	)
}

// Close flushes any buffered log entries.
func (l *Logger) Close() error {
	return l.zap.Sync()
}
