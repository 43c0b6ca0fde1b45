package watcher

import (
	"context"
	"log/slog"

	"github.com/starford/focusfive/internal/dayservice"
	"github.com/starford/focusfive/internal/storage"
)

// Sync walks the days directory and reconciles every file whose content
// changed since its metadata was last written. It returns how many days
// were reconciled.
func Sync(ctx context.Context, days *dayservice.Service, store storage.Provider, logger *slog.Logger) (int, error) {
	files, err := store.List(dayservice.DaysDir, ".md")
	if err != nil {
		return 0, err
	}
	n := 0
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		date, ok := dayservice.DateFromPath(f.Path)
		if !ok {
			logger.Warn("sync: unexpected file", slog.String("path", f.Path))
			continue
		}
		if _, changed := reconcile(ctx, days, date, f.Checksum, logger); changed {
			n++
		}
	}
	logger.Info("sync: complete", slog.Int("files", len(files)), slog.Int("reconciled", n))
	return n, nil
}
