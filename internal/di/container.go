// Package di provides dependency injection configuration for the ThruText API server and tools.
package di

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/GetThruTools/ThruText-API/internal/config"
	"github.com/GetThruTools/ThruText-API/internal/di/providers"
	"github.com/GetThruTools/ThruText-API/internal/logger"
	"github.com/GetThruTools/ThruText-API/internal/metrics"
	"github.com/GetThruTools/ThruText-API/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
// Providers are lazy, so command line tools only build what they invoke.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideMetrics)

	// Storage layer
	do.Provide(injector, providers.ProvideCache)
	do.Provide(injector, providers.ProvideImportLog)

	// Remote API
	do.Provide(injector, providers.ProvideThruTextClient)

	// Business services
	do.Provide(injector, providers.ProvideFieldService)
	do.Provide(injector, providers.ProvideImportService)

	// Workers
	do.Provide(injector, providers.ProvideSynonymWatcher)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all server services, runs field mapping setup once and
// starts the watcher and HTTP server.
//
// A failed initial setup does not stop the server: health reports it, mapping
// and imports are refused, and the next successful reload (from the watcher or
// the reload endpoint) recovers.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	log := do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*metrics.Metrics](injector)
	_ = do.MustInvoke[*providers.CacheHandle](injector)
	_ = do.MustInvoke[*providers.ImportLogHandle](injector)
	_ = do.MustInvoke[*providers.ThruTextClientHandle](injector)

	// Business services
	fields := do.MustInvoke[*providers.FieldServiceHandle](injector)
	_ = do.MustInvoke[*service.ImportService](injector)

	if _, err := fields.Reload(context.Background(), false); err != nil {
		log.Error("Initial field mapping setup failed, serving without a session", "error", err)
	}

	// Workers
	_ = do.MustInvoke[*providers.SynonymWatcherHandle](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
