package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	log  *zap.Logger
	once sync.Once
)

// Init configures the global logger. Level is one of debug/info/warn/error,
// format is "json" or "text". Safe to call more than once; only the first
// call takes effect.
func Init(level, format string) error {
	var initErr error
	once.Do(func() {
		cfg := zap.NewProductionConfig()
		if format == "text" || format == "plain" {
			cfg.Encoding = "console"
			cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		}

		var lvl zapcore.Level
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			lvl = zapcore.InfoLevel
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)

		log, initErr = cfg.Build(zap.AddCallerSkip(1))
	})
	return initErr
}

func get() *zap.Logger {
	if log == nil {
		log = zap.NewNop()
	}
	return log
}

func Debug(msg string, fields ...zap.Field) { get().Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { get().Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { get().Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { get().Error(msg, fields...) }

func Sync() {
	if log != nil {
		_ = log.Sync()
	}
}
