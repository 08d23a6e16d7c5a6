// Package logger holds the process-wide zap logger of the gateway.
package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const serviceName = "autostack-gateway"

var (
	global *zap.Logger
	level  = zap.NewAtomicLevel()
)

// Init builds the global logger. Entries below error go to stdout, errors and
// above to stderr. level is a zap level name; format is json or console.
func Init(lvl, format string) (*zap.Logger, error) {
	return initWith(lvl, format, zapcore.Lock(os.Stdout), zapcore.Lock(os.Stderr))
}

func initWith(lvl, format string, out, errOut zapcore.WriteSyncer) (*zap.Logger, error) {
	parsed, err := zapcore.ParseLevel(strings.ToLower(lvl))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", lvl, err)
	}

	enc, err := newEncoder(format)
	if err != nil {
		return nil, err
	}

	level.SetLevel(parsed)
	low := zap.LevelEnablerFunc(func(l zapcore.Level) bool { return level.Enabled(l) && l < zapcore.ErrorLevel })
	high := zap.LevelEnablerFunc(func(l zapcore.Level) bool { return level.Enabled(l) && l >= zapcore.ErrorLevel })

	core := zapcore.NewTee(
		zapcore.NewCore(enc, out, low),
		zapcore.NewCore(enc.Clone(), errOut, high),
	)
	global = zap.New(core,
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.DPanicLevel),
		zap.Fields(zap.String("service", serviceName)),
	)
	return global, nil
}

func newEncoder(format string) (zapcore.Encoder, error) {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "time"
	cfg.MessageKey = "message"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeDuration = zapcore.MillisDurationEncoder

	switch strings.ToLower(format) {
	case "json":
		return zapcore.NewJSONEncoder(cfg), nil
	case "console":
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(cfg), nil
	}
	return nil, fmt.Errorf("invalid log format %q", format)
}

// SetLevel changes the level of the running logger.
func SetLevel(lvl string) error {
	parsed, err := zapcore.ParseLevel(strings.ToLower(lvl))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", lvl, err)
	}
	level.SetLevel(parsed)
	return nil
}

// L returns the global logger. Panics if not initialized.
func L() *zap.Logger {
	if global == nil {
		panic("logger not initialized: call logger.Init first")
	}
	return global
}

// Named returns a child of the global logger scoped to a component.
func Named(component string) *zap.Logger {
	return L().Named(component)
}

// Request returns a child logger tagged with an HTTP request id.
func Request(requestID string) *zap.Logger {
	if requestID == "" {
		return L()
	}
	return L().With(zap.String("request_id", requestID))
}

// Sync flushes any buffered log entries.
func Sync() {
	if global != nil {
		_ = global.Sync()
	}
}
