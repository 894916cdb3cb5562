package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/GetThruTools/ThruText-API/internal/config"
	"github.com/GetThruTools/ThruText-API/internal/logger"
	"github.com/GetThruTools/ThruText-API/internal/watcher"
)

// SynonymWatcherHandle wraps the synonym file watcher with shutdown capability.
// Watcher is nil when watching is disabled.
type SynonymWatcherHandle struct {
	*watcher.Watcher
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *SynonymWatcherHandle) Shutdown() error {
	if h.Watcher == nil {
		return nil
	}
	h.cancel()
	return h.Watcher.Stop()
}

// ProvideSynonymWatcher reloads field mapping whenever the synonym file
// settles after a change.
//
// Only the synonym file is watched. The file cache writes the code registry
// into the same directory on every refresh, and reacting to that would loop.
func ProvideSynonymWatcher(i do.Injector) (*SynonymWatcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	fields := do.MustInvoke[*FieldServiceHandle](i)

	if !cfg.Fields.Watch {
		log.Info("Synonym file watching disabled")
		return &SynonymWatcherHandle{}, nil
	}

	w, err := watcher.New(log.WithComponent("watcher").Logger, watcher.Options{})
	if err != nil {
		return nil, err
	}
	if err := w.Watch(cfg.SynonymsPath()); err != nil {
		_ = w.Stop()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		if err := w.Start(ctx); err != nil {
			log.Error("File watcher error", "error", err)
		}
	}()

	go watcher.RunReloader(ctx, w, func(ctx context.Context) error {
		_, err := fields.Reload(ctx, false)
		return err
	}, log.Logger)

	log.Info("Watching synonym file", "path", cfg.SynonymsPath())

	return &SynonymWatcherHandle{
		Watcher: w,
		cancel:  cancel,
	}, nil
}
