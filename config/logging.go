package config

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the process logger: human-readable at debug level in
// dev, JSON at info level otherwise.
func NewLogger(c *Config, verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if c.Dev() {
		zc = zap.NewDevelopmentConfig()
	}
	if verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}
