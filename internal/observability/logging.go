package observability

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/spec-kit/issue-service/internal/config"
)

// NewLogger creates the service logger. Every entry carries the service name,
// environment and version.
func NewLogger(logCfg config.LoggerConfig, app config.AppConfig) (*zap.Logger, error) {
	return loggerConfig(logCfg, app).Build()
}

func loggerConfig(logCfg config.LoggerConfig, app config.AppConfig) zap.Config {
	level := zapcore.InfoLevel
	if err := level.Set(strings.ToLower(logCfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}
	development := app.Env == "" || app.Env == "development"

	encoder := zapcore.EncoderConfig{
		MessageKey:    "message",
		LevelKey:      "level",
		TimeKey:       "ts",
		CallerKey:     "caller",
		StacktraceKey: "stacktrace",
		EncodeLevel:   zapcore.LowercaseLevelEncoder,
		EncodeTime:    zapcore.ISO8601TimeEncoder,
		EncodeCaller:  zapcore.ShortCallerEncoder,
	}
	return zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       development,
		DisableStacktrace: !development,
		Encoding:          "json",
		EncoderConfig:     encoder,
		InitialFields: map[string]interface{}{
			"service": app.Name,
			"env":     app.Env,
			"version": app.Version,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
}
