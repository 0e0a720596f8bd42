// Package logger builds the application's zap logger from configuration.
package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/seenimoa/alphapredict/internal/config"
)

// New returns a logger for the given settings. Format "json" selects the
// production encoder; anything else gets the human-readable console encoder.
func New(cfg config.LoggingConfig) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		lvl, err := zapcore.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return nil, fmt.Errorf("logger: %w", err)
		}
		level = lvl
	}

	var zc zap.Config
	if strings.EqualFold(cfg.Format, "json") {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zc.Development = false
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.DisableStacktrace = level > zapcore.DebugLevel

	return zc.Build()
}
