package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the structured logging surface used across the application.
// Each call carries a message, a field key and an object grouped under that key.
type Logger interface {
	DebugObj(msg, key string, obj map[string]any)
	InfoObj(msg, key string, obj map[string]any)
	WarnObj(msg, key string, obj map[string]any)
	ErrorObj(msg, key string, obj map[string]any)
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) DebugObj(string, string, map[string]any) {}
func (NopLogger) InfoObj(string, string, map[string]any)  {}
func (NopLogger) WarnObj(string, string, map[string]any)  {}
func (NopLogger) ErrorObj(string, string, map[string]any) {}

// ZapLogger adapts a zap logger to Logger.
type ZapLogger struct {
	z *zap.Logger
}

// New builds a console logger writing to stderr at the given level name.
func New(level string) (*ZapLogger, error) {
	return NewWithWriter(level, os.Stderr)
}

// NewWithWriter builds a console logger writing to w.
func NewWithWriter(level string, w io.Writer) (*ZapLogger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(zapcore.AddSync(w)),
		lvl,
	)
	return &ZapLogger{z: zap.New(core)}, nil
}

func (l *ZapLogger) DebugObj(msg, key string, obj map[string]any) {
	l.z.Debug(msg, zap.Any(key, obj))
}

func (l *ZapLogger) InfoObj(msg, key string, obj map[string]any) {
	l.z.Info(msg, zap.Any(key, obj))
}

func (l *ZapLogger) WarnObj(msg, key string, obj map[string]any) {
	l.z.Warn(msg, zap.Any(key, obj))
}

func (l *ZapLogger) ErrorObj(msg, key string, obj map[string]any) {
	l.z.Error(msg, zap.Any(key, obj))
}

// Sync flushes buffered entries.
func (l *ZapLogger) Sync() error {
	return l.z.Sync()
}

// Levels lists the accepted level names in decreasing severity.
var Levels = []string{"CRITICAL", "ERROR", "WARNING", "INFO", "DEBUG"}

// ParseLevel maps a level name to a zap level.
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "CRITICAL":
		return zapcore.FatalLevel, nil
	case "ERROR":
		return zapcore.ErrorLevel, nil
	case "WARNING", "WARN":
		return zapcore.WarnLevel, nil
	case "", "INFO":
		return zapcore.InfoLevel, nil
	case "DEBUG":
		return zapcore.DebugLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q (expected one of %s)", level, strings.Join(Levels, ", "))
	}
}
