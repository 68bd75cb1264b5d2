package app

import (
	"github.com/guttosm/shell-cache/config"
	"github.com/guttosm/shell-cache/internal/logger"
)

// InitializeLogger initializes the JSON logger from configuration.
func InitializeLogger(cfg config.LogConfig) {
	logger.Init(cfg.Level, cfg.Pretty)
}
