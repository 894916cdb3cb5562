package providers

import (
	"github.com/samber/do/v2"

	"github.com/GetThruTools/ThruText-API/internal/config"
	"github.com/GetThruTools/ThruText-API/internal/logger"
	"github.com/GetThruTools/ThruText-API/internal/metrics"
	"github.com/GetThruTools/ThruText-API/internal/service"
)

// ProvideMetrics provides the Prometheus metrics registry.
func ProvideMetrics(i do.Injector) (*metrics.Metrics, error) {
	return metrics.New(), nil
}

// FieldServiceHandle wraps the field service with shutdown capability.
type FieldServiceHandle struct {
	*service.FieldService
}

// Shutdown implements do.Shutdownable.
func (h *FieldServiceHandle) Shutdown() error {
	return h.Close()
}

// ProvideFieldService provides the field mapping service. No session is
// loaded until Reload is called.
func ProvideFieldService(i do.Injector) (*FieldServiceHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	cache := do.MustInvoke[*CacheHandle](i)
	client := do.MustInvoke[*ThruTextClientHandle](i)
	m := do.MustInvoke[*metrics.Metrics](i)

	svc := service.NewFieldService(service.FieldOptions{
		SynonymsPath: cfg.SynonymsPath(),
		CacheKey:     cfg.Fields.CodesFile,
	}, cache.Cache, client.Client, m, log.WithComponent("fields").Logger)

	return &FieldServiceHandle{FieldService: svc}, nil
}

// ProvideImportService provides the group import service.
func ProvideImportService(i do.Injector) (*service.ImportService, error) {
	log := do.MustInvoke[*logger.Logger](i)
	fields := do.MustInvoke[*FieldServiceHandle](i)
	client := do.MustInvoke[*ThruTextClientHandle](i)
	importLog := do.MustInvoke[*ImportLogHandle](i)
	m := do.MustInvoke[*metrics.Metrics](i)

	return service.NewImportService(fields.FieldService, client.Client, importLog.Store, m, log.WithComponent("imports").Logger), nil
}
