// Package log builds the zap logger shared by every component.
package log

import (
	"strings"

	"github.com/bronystylecrazy/assetbridge/build"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ParseLevel maps a configured level name to a zap level. Unknown names fall
// back to debug in development builds and info otherwise.
func ParseLevel(name string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	}
	if build.IsDevelopment() {
		return zapcore.DebugLevel
	}
	return zapcore.InfoLevel
}

// NewAtomicLevel returns the level shared by the logger and config reloads.
func NewAtomicLevel(cfg Config) zap.AtomicLevel {
	return zap.NewAtomicLevelAt(ParseLevel(cfg.Level))
}

func NewZapLogger(cfg Config, level zap.AtomicLevel) (*zap.Logger, error) {
	var zapConfig zap.Config
	if build.IsDevelopment() {
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		zapConfig = zap.NewProductionConfig()
	}
	zapConfig.Level = level

	redact := cfg.Redact
	if len(redact) == 0 {
		redact = DefaultRedact
	}
	return zapConfig.Build(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return RedactCore(core, redact...)
	}))
}

func NewEventLogger(log *zap.Logger) fxevent.Logger {
	return &fxevent.ZapLogger{Logger: log.Named("fx")}
}
