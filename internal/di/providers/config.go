// Package providers contains dependency injection providers for the sync service.
package providers

import (
	"github.com/samber/do/v2"

	"github.com/faithconnect/bookstack-sync/internal/config"
	"github.com/faithconnect/bookstack-sync/internal/logger"
	"github.com/faithconnect/bookstack-sync/internal/validation"
)

// ProvideConfig provides the application configuration.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	flags := do.MustInvoke[*config.Flags](i)
	return config.Load(flags)
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.IsDevelopment(),
		Environment: cfg.App.Environment,
	})

	log.Info("Starting BookStack sync",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"source", cfg.Source.BaseURL,
		"destination", cfg.Destination.BaseURL,
		"data_path", cfg.Store.DataPath,
	)

	return log, nil
}

// ProvideValidator provides the shared draft validator.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}
