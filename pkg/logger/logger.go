package logger

import (
	"strconv"
	"strings"

	"fuzzrun/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the process logger from the configured level.
func NewLogger(cfg *config.AppConfig) (*zap.Logger, error) {
	level := ParseLevel(cfg.LogLevel)

	var zcfg zap.Config
	if level > zapcore.InfoLevel {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	return zcfg.Build()
}

// ParseLevel maps a --loglevel value to a zap level. Accepts the names
// DEBUG, INFO, WARNING, ERROR and CRITICAL as well as the corresponding
// numeric levels (10..50). Unknown values fall back to INFO.
func ParseLevel(s string) zapcore.Level {
	if n, err := strconv.Atoi(s); err == nil {
		switch {
		case n <= 10:
			return zapcore.DebugLevel
		case n <= 20:
			return zapcore.InfoLevel
		case n <= 30:
			return zapcore.WarnLevel
		case n <= 40:
			return zapcore.ErrorLevel
		default:
			return zapcore.FatalLevel
		}
	}

	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "critical":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}
