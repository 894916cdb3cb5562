package providers

import (
	"github.com/samber/do/v2"

	"github.com/GetThruTools/ThruText-API/internal/config"
	"github.com/GetThruTools/ThruText-API/internal/logger"
	"github.com/GetThruTools/ThruText-API/internal/store"
	"github.com/GetThruTools/ThruText-API/internal/store/sqlite"
)

// CacheHandle wraps the document cache with shutdown capability.
type CacheHandle struct {
	store.Cache
}

// Shutdown implements do.Shutdownable.
func (h *CacheHandle) Shutdown() error {
	return h.Close()
}

// ProvideCache provides the cache holding the code registry and region list.
func ProvideCache(i do.Injector) (*CacheHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	cache, err := store.Open(cfg.Cache.Backend, cfg.Cache.Path, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Cache opened", "backend", cfg.Cache.Backend, "path", cfg.Cache.Path)

	return &CacheHandle{Cache: cache}, nil
}

// ImportLogHandle wraps the import history database with shutdown capability.
type ImportLogHandle struct {
	*sqlite.Store
}

// Shutdown implements do.Shutdownable.
func (h *ImportLogHandle) Shutdown() error {
	return h.Close()
}

// ProvideImportLog provides the import history database.
func ProvideImportLog(i do.Injector) (*ImportLogHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	db, err := sqlite.Open(cfg.Imports.DatabasePath, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Import log opened", "path", cfg.Imports.DatabasePath)

	return &ImportLogHandle{Store: db}, nil
}
