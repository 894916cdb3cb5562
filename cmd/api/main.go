// Command api serves the field mapping and group import HTTP API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"

	"github.com/GetThruTools/ThruText-API/internal/di"
	"github.com/GetThruTools/ThruText-API/internal/logger"
)

func main() {
	injector := di.NewContainer()

	if err := di.Bootstrap(injector); err != nil {
		fmt.Fprintf(os.Stderr, "thrutext api: %v\n", err)
		os.Exit(1)
	}
	log := do.MustInvoke[*logger.Logger](injector)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	log.Info("shutdown requested")

	// Services shut down in reverse dependency order: HTTP server first, stores last.
	if err := injector.Shutdown(); err != nil {
		log.Fatal("shutdown incomplete", "error", err)
	}
	log.Info("stopped")
}
