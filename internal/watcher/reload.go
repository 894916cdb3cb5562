package watcher

import (
	"context"
	"log/slog"
)

// ReloadFunc re-reads configuration after a watched file changed.
type ReloadFunc func(ctx context.Context) error

// RunReloader calls reload after each settled modification until ctx is
// cancelled or the watcher stops. Events already queued when a reload starts
// are folded into it. A removed file is only logged: the configuration loaded
// last stays in effect.
func RunReloader(ctx context.Context, w *Watcher, reload ReloadFunc, logger *slog.Logger) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-w.Errors():
			if !ok {
				return
			}
			logger.Warn("file watch error", "error", err)
		case event, ok := <-w.Events():
			if !ok {
				return
			}
			if event.Op == Removed {
				logger.Warn("watched file removed, keeping current configuration", "path", event.Path)
				continue
			}
			skipped := drain(w.Events())

			logger.Info("watched file changed, reloading", "path", event.Path, "coalesced", skipped)
			if err := reload(ctx); err != nil {
				logger.Error("reload after file change failed", "path", event.Path, "error", err)
			}
		}
	}
}

// drain discards queued events without blocking and returns how many it discarded.
func drain(events <-chan Event) int {
	n := 0
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return n
			}
			n++
		default:
			return n
		}
	}
}
