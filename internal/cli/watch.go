package cli

import (
	"context"
	"log/slog"

	"github.com/aretw0/conserje"
)

// WatchCatalog reloads the catalog on every change the loader reports and calls
// onReload with the new catalog version. It returns false when the catalog
// source cannot be watched (single-file catalogs), in which case nothing runs.
func WatchCatalog(ctx context.Context, engine *conserje.Engine, logger *slog.Logger, onReload func(version string)) bool {
	reloaded, err := engine.Watch(ctx)
	if err != nil {
		logger.Warn("catalog watch unavailable", "err", err)
		return false
	}

	logger.Info("watching catalog for changes", "version", engine.Catalog().Version)
	go func() {
		for range reloaded {
			version := engine.Catalog().Version
			logger.Info("catalog reloaded", "version", version)
			if onReload != nil {
				onReload(version)
			}
		}
	}()
	return true
}
