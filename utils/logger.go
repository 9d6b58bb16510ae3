package utils

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger provides leveled, printf-style logging throughout the application,
// backed by zap.
type Logger struct {
	sugar *zap.SugaredLogger
}

// NewLogger builds a Logger for the given level ("debug"|"info"|"warn"|
// "error"). pretty selects the colored development encoder; otherwise output
// is production JSON.
func NewLogger(level string, pretty bool) *Logger {
	var cfg zap.Config
	if pretty {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(level))
	cfg.DisableStacktrace = true

	base, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		panic(err)
	}
	return &Logger{sugar: base.Sugar()}
}

// NewTestLogger returns a no-op logger for tests.
func NewTestLogger() *Logger {
	return &Logger{sugar: zap.NewNop().Sugar()}
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func (l *Logger) Info(format string, args ...any)  { l.sugar.Infof(format, args...) }
func (l *Logger) Warn(format string, args ...any)  { l.sugar.Warnf(format, args...) }
func (l *Logger) Error(format string, args ...any) { l.sugar.Errorf(format, args...) }
func (l *Logger) Debug(format string, args ...any) { l.sugar.Debugf(format, args...) }

// Sync flushes buffered log entries. Call on shutdown.
func (l *Logger) Sync() { _ = l.sugar.Sync() }
