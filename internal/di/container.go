// Package di provides dependency injection configuration for the sync service.
package di

import (
	"github.com/samber/do/v2"

	"github.com/faithconnect/bookstack-sync/internal/config"
	"github.com/faithconnect/bookstack-sync/internal/di/providers"
	"github.com/faithconnect/bookstack-sync/internal/logger"
	"github.com/faithconnect/bookstack-sync/internal/service"
	"github.com/faithconnect/bookstack-sync/internal/validation"
)

// NewContainer creates and configures the DI container with all providers.
// flags carries the parsed command line; nil means "no flags given".
func NewContainer(flags *config.Flags) *do.RootScope {
	injector := do.New()

	if flags == nil {
		flags = &config.Flags{}
	}
	do.ProvideValue(injector, flags)

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideValidator)

	// Run journal
	do.Provide(injector, providers.ProvideStore)

	// Instance clients
	do.Provide(injector, providers.ProvideOutboundLimiter)
	do.Provide(injector, providers.ProvideSourceClient)
	do.Provide(injector, providers.ProvideDestinationClient)
	do.Provide(injector, providers.ProvideCoverDownloader)

	// Business services
	do.Provide(injector, providers.ProvideSyncService)
	do.Provide(injector, providers.ProvideCatalogService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes every service the API server needs and starts listening.
// Commands that only need a subset invoke those services directly instead.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*validation.Validator](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*providers.SyncServiceHandle](injector)
	_ = do.MustInvoke[*service.CatalogService](injector)

	if _, err := do.Invoke[*providers.HTTPServerHandle](injector); err != nil {
		return err
	}
	return nil
}
