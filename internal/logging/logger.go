// Package logging provides zap logger helpers.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls logger construction.
type Config struct {
	Development bool
	// File enables rotated file output when non-empty.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// New builds a zap.Logger configured for development or production, writing
// to stderr or to a size-rotated file.
func New(cfg Config) (*zap.Logger, error) {
	if cfg.File != "" {
		return newFileLogger(cfg), nil
	}
	if cfg.Development {
		zcfg := zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.TimeKey = "ts"
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		logger, err := zcfg.Build()
		if err != nil {
			return nil, fmt.Errorf("build dev logger: %w", err)
		}
		return logger, nil
	}
	zcfg := zap.NewProductionConfig()
	zcfg.DisableStacktrace = false
	zcfg.EncoderConfig.TimeKey = "ts"
	logger, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build prod logger: %w", err)
	}
	return logger, nil
}

func newFileLogger(cfg Config) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encoder := zapcore.NewJSONEncoder(encCfg)

	level := zapcore.InfoLevel
	if cfg.Development {
		encoder = zapcore.NewConsoleEncoder(encCfg)
		level = zapcore.DebugLevel
	}

	sink := zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    orDefault(cfg.MaxSizeMB, 50),
		MaxBackups: orDefault(cfg.MaxBackups, 5),
		MaxAge:     orDefault(cfg.MaxAgeDays, 14),
		Compress:   true,
	})
	core := zapcore.NewCore(encoder, sink, level)
	return zap.New(core)
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
