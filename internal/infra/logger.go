package infra

import (
	"fmt"

	"go.uber.org/zap"
)

// NewLogger собирает zap логгер из LoggerConfig.
func NewLogger(cfg LoggerConfig) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()

	if cfg.Level != "" {
		lvl, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("logger: %w", err)
		}
		zcfg.Level = lvl
	}

	switch cfg.Format {
	case "", "json":
	case "console":
		zcfg.Encoding = "console"
		zcfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	default:
		return nil, fmt.Errorf("logger: unknown format %q", cfg.Format)
	}

	return zcfg.Build()
}
