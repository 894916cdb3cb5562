package providers

import (
	"github.com/samber/do/v2"

	"github.com/GetThruTools/ThruText-API/internal/config"
	"github.com/GetThruTools/ThruText-API/internal/logger"
	"github.com/GetThruTools/ThruText-API/internal/thrutext"
)

// ThruTextClientHandle wraps the ThruText client with shutdown capability.
type ThruTextClientHandle struct {
	*thrutext.Client
}

// Shutdown implements do.Shutdownable.
func (h *ThruTextClientHandle) Shutdown() error {
	h.Close()
	return nil
}

// ProvideThruTextClient provides the rate-limited ThruText API client.
// It logs in lazily on the first account call.
func ProvideThruTextClient(i do.Injector) (*ThruTextClientHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	cache := do.MustInvoke[*CacheHandle](i)

	if !cfg.HasCredentials() {
		log.Warn("ThruText credentials not configured, remote calls will fail",
			"env", "THRU_TEXT_API_UN/THRU_TEXT_API_PW",
		)
	}

	client := thrutext.New(thrutext.Config{
		AccountName:       cfg.ThruText.AccountName,
		Staging:           cfg.ThruText.Staging,
		Timeout:           cfg.ThruText.Timeout,
		RequestsPerSecond: cfg.ThruText.RequestsPerSecond,
		Burst:             cfg.ThruText.Burst,
		DefaultTimezone:   cfg.ThruText.DefaultTimezone,
		Username:          cfg.ThruText.Username,
		Password:          cfg.ThruText.Password,
		Cache:             cache.Cache,
	}, log.WithComponent("thrutext").Logger)

	return &ThruTextClientHandle{Client: client}, nil
}
