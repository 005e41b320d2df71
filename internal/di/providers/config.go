// Package providers contains dependency injection providers for the BookBridge server.
package providers

import (
	"github.com/samber/do/v2"

	"github.com/bookbridge/bookbridge-server/internal/config"
	"github.com/bookbridge/bookbridge-server/internal/logger"
)

// ProvideConfig provides the application configuration.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	return config.LoadConfig()
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		Format:      cfg.Logger.Format,
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})

	log.Info("Starting BookBridge server",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"data_dir", cfg.Data.Dir,
		"database", cfg.Data.DatabasePath,
		"search_enabled", cfg.Search.Enabled,
	)

	return log, nil
}
