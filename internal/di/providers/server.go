package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/samber/do/v2"

	"github.com/GetThruTools/ThruText-API/internal/api"
	"github.com/GetThruTools/ThruText-API/internal/config"
	"github.com/GetThruTools/ThruText-API/internal/logger"
	"github.com/GetThruTools/ThruText-API/internal/metrics"
	"github.com/GetThruTools/ThruText-API/internal/service"
)

// Version is reported in the OpenAPI document. Set at build time.
var Version = "dev"

// drainTimeout bounds how long in-flight requests may run after shutdown starts.
const drainTimeout = 30 * time.Second

// HTTPServerHandle is the running API server.
type HTTPServerHandle struct {
	*http.Server
	// Bound is the listening address, which differs from Addr for port 0.
	Bound net.Addr
	api   *api.Server
}

// Shutdown drains in-flight requests.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	err := h.Server.Shutdown(ctx)
	h.api.Close()
	return err
}

// ProvideHTTPServer binds the listen address and serves in the background.
// A port that cannot be bound fails the provider instead of the goroutine.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	fields := do.MustInvoke[*FieldServiceHandle](i)
	imports := do.MustInvoke[*service.ImportService](i)
	m := do.MustInvoke[*metrics.Metrics](i)

	handler := api.NewServer(fields.FieldService, imports, m, log.WithComponent("api").Logger, api.Options{
		Version:           Version,
		AllowedOrigins:    cfg.Server.CORSOrigins,
		RequestsPerSecond: cfg.Server.RequestsPerSecond,
		Burst:             cfg.Server.Burst,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", srv.Addr, err)
	}

	go func() {
		log.Info("HTTP server listening", "addr", ln.Addr().String(), "version", Version)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server stopped unexpectedly", "error", err)
		}
	}()

	return &HTTPServerHandle{Server: srv, Bound: ln.Addr(), api: handler}, nil
}
