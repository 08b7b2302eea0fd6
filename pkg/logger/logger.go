// Package logger provides basic logging functionalities.
package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger defines a simple interface for logging.
type Logger interface {
	Debug(args ...interface{})
	Debugf(format string, args ...interface{})
	Info(args ...interface{})
	Infof(format string, args ...interface{})
	Warn(args ...interface{})
	Warnf(format string, args ...interface{})
	Error(args ...interface{})
	Errorf(format string, args ...interface{})
	Fatal(args ...interface{})
	Fatalf(format string, args ...interface{})
}

// level is shared by every logger built here so SetGlobalLogLevel takes effect everywhere.
var level = zap.NewAtomicLevelAt(zapcore.InfoLevel)

// NewZap builds a zap.Logger bound to the global level.
// Production encoding is JSON; debug switches to the console encoder.
func NewZap(logLevel string) (*zap.Logger, error) {
	level.SetLevel(parseLevel(logLevel))

	cfg := zap.NewProductionConfig()
	if strings.EqualFold(logLevel, "debug") {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = level
	return cfg.Build(zap.AddCallerSkip(0))
}

// NewLogger creates and configures a new Logger instance.
// loglevel could be "debug", "info", "warn", "error", "fatal"
func NewLogger(logLevel string) Logger {
	z, err := NewZap(logLevel)
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return z.Sugar()
}

func parseLevel(logLevel string) zapcore.Level {
	switch strings.ToLower(logLevel) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// Global std logger instance, initialized directly with default "info" settings.
var std = newStd()

func newStd() *zap.SugaredLogger {
	cfg := zap.NewProductionConfig()
	cfg.Level = level
	z, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return z.Sugar()
}

// SetGlobalLogLevel reconfigures the global std logger's level.
func SetGlobalLogLevel(logLevel string) {
	level.SetLevel(parseLevel(logLevel))
}

// ReplaceGlobal swaps the zap logger behind the package-level functions.
// Tests use it with zap.NewNop or an observer core.
func ReplaceGlobal(z *zap.Logger) {
	std = z.WithOptions(zap.AddCallerSkip(1)).Sugar()
}

// Sync flushes the global logger.
func Sync() {
	_ = std.Sync()
}

// Debug logs a debug message using the global std logger.
func Debug(args ...interface{}) {
	std.Debug(args...)
}

// Debugf logs a debug message with formatting.
func Debugf(format string, args ...interface{}) {
	std.Debugf(format, args...)
}

// Info logs an informational message using the global std logger.
func Info(args ...interface{}) {
	std.Info(args...)
}

// Infof logs an informational message with formatting.
func Infof(format string, args ...interface{}) {
	std.Infof(format, args...)
}

// Warnf logs a warning message with formatting.
func Warnf(format string, args ...interface{}) {
	std.Warnf(format, args...)
}

// Error logs an error message.
func Error(args ...interface{}) {
	std.Error(args...)
}

// Errorf logs an error message with formatting.
func Errorf(format string, args ...interface{}) {
	std.Errorf(format, args...)
}

// Fatal logs a fatal error message and exits.
func Fatal(args ...interface{}) {
	std.Fatal(args...)
}

// Fatalf logs a fatal error message with formatting and exits.
func Fatalf(format string, args ...interface{}) {
	std.Fatalf(format, args...)
}
