// Package providers contains dependency injection providers for the ThruText API server and tools.
package providers

import (
	"github.com/samber/do/v2"

	"github.com/GetThruTools/ThruText-API/internal/config"
	"github.com/GetThruTools/ThruText-API/internal/logger"
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
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})

	log.Debug("configuration loaded",
		"environment", cfg.App.Environment,
		"account", cfg.ThruText.AccountName,
		"staging", cfg.ThruText.Staging,
		"synonyms", cfg.SynonymsPath(),
		"cache", cfg.Cache.Backend+":"+cfg.Cache.Path,
		"imports_db", cfg.Imports.DatabasePath,
	)

	return log, nil
}
