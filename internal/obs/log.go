// Package obs holds the observability plumbing shared across the service:
// structured logging, Prometheus metrics and build info.
package obs

import (
	"go.uber.org/zap"
)

// NewLogger builds the service logger. Production JSON output; level is one of
// debug, info, warn, error (anything else falls back to info).
func NewLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	switch level {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}
