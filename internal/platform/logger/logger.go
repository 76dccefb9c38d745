package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a sugared zap logger whose key/value pairs pass through a redaction policy.
type Logger struct {
	SugaredLogger *zap.SugaredLogger
	policy        *redactPolicy
}

// New builds a logger for mode: "prod"/"production" emits JSON at info, "test"/"nop" discards
// everything, any other value gives the development console encoder at debug. LOG_LEVEL
// overrides the level.
func New(mode string) (*Logger, error) {
	var (
		cfg      zap.Config
		fallback zapcore.Level
	)
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "test", "nop":
		return Nop(), nil
	case "prod", "production":
		cfg, fallback = zap.NewProductionConfig(), zapcore.InfoLevel
	default:
		cfg, fallback = zap.NewDevelopmentConfig(), zapcore.DebugLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(os.Getenv("LOG_LEVEL"), fallback))

	base, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	return &Logger{SugaredLogger: base.Sugar(), policy: policyFromEnv()}, nil
}

// Nop returns a logger that drops everything.
func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar(), policy: &redactPolicy{}}
}

func parseLevel(raw string, fallback zapcore.Level) zapcore.Level {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return fallback
	}
	var lvl zapcore.Level
	if lvl.UnmarshalText([]byte(raw)) != nil {
		return fallback
	}
	return lvl
}

func (l *Logger) Sync() { _ = l.SugaredLogger.Sync() }

func (l *Logger) Debug(msg string, kv ...interface{}) { l.SugaredLogger.Debugw(msg, l.policy.apply(kv)...) }
func (l *Logger) Info(msg string, kv ...interface{}) { l.SugaredLogger.Infow(msg, l.policy.apply(kv)...) }
func (l *Logger) Warn(msg string, kv ...interface{}) { l.SugaredLogger.Warnw(msg, l.policy.apply(kv)...) }
func (l *Logger) Error(msg string, kv ...interface{}) { l.SugaredLogger.Errorw(msg, l.policy.apply(kv)...) }
func (l *Logger) Fatal(msg string, kv ...interface{}) { l.SugaredLogger.Fatalw(msg, l.policy.apply(kv)...) }

// With returns a child logger carrying kv on every entry.
func (l *Logger) With(kv ...interface{}) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(l.policy.apply(kv)...), policy: l.policy}
}
