package logging

import (
	"strings"

	"go.uber.org/zap"
)

// New builds the process logger. Mode "prod"/"production" selects the
// JSON production config; anything else gets the console development
// config.
func New(mode string) (*zap.SugaredLogger, error) {
	var cfg zap.Config
	switch strings.ToLower(mode) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

// Nop returns a logger that discards everything. For tests.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
