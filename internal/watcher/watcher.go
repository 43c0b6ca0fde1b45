// Package watcher reconciles day files edited outside the process and
// reports the changes to a callback.
package watcher

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/focusfive/internal/checksum"
	"github.com/starford/focusfive/internal/dayservice"
	"github.com/starford/focusfive/internal/models"
	"github.com/starford/focusfive/internal/storage"
)

// Event kinds passed to EventCallback.
const (
	KindCreated = "created"
	KindUpdated = "updated"
	KindDeleted = "deleted"
)

// EventCallback is called after a watcher-driven reconciliation.
type EventCallback func(kind string, date time.Time)

// settleDelay lets a burst of editor writes, or the text and metadata halves
// of our own save, land before a file is examined.
const settleDelay = 150 * time.Millisecond

// Watch starts an fsnotify watcher on the days directory under root and
// processes change events until ctx is cancelled. Events are collected per
// file and handled once the file has been quiet for a short while. Files
// whose content already matches the checksum recorded in their metadata are
// skipped, which filters out the process's own writes.
func Watch(ctx context.Context, days *dayservice.Service, store storage.Provider, root string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dir := filepath.Join(root, dayservice.DaysDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := w.Add(dir); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("dir", dir))

	pending := make(map[string]struct{})
	var settleTimer *time.Timer
	var settleCh <-chan time.Time

	schedule := func() {
		if settleTimer == nil {
			settleTimer = time.NewTimer(settleDelay)
			settleCh = settleTimer.C
		} else {
			settleTimer.Reset(settleDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if settleTimer != nil {
				settleTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-settleCh:
			for rel := range pending {
				handleFile(ctx, days, store, rel, logger, cb)
			}
			clear(pending)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			name := filepath.Base(ev.Name)
			if !strings.HasSuffix(name, ".md") || strings.HasPrefix(name, ".") {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			pending[dayservice.DaysDir+"/"+name] = struct{}{}
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// handleFile reconciles one day file, or reports it deleted when it is gone.
func handleFile(ctx context.Context, days *dayservice.Service, store storage.Provider, rel string, logger *slog.Logger, cb EventCallback) {
	date, ok := dayservice.DateFromPath(rel)
	if !ok {
		logger.Debug("watcher: ignoring file", slog.String("path", rel))
		return
	}
	data, err := store.Read(rel)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Debug("watcher: deleted", slog.String("path", rel))
		if cb != nil {
			cb(KindDeleted, date)
		}
		return
	}
	if err != nil {
		logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	kind, changed := reconcile(ctx, days, date, checksum.Sum(data), logger)
	if changed && cb != nil {
		cb(kind, date)
	}
}

// reconcile loads date through the day service when its text differs from
// what the metadata last recorded. It reports the event kind and whether
// anything was done.
func reconcile(ctx context.Context, days *dayservice.Service, date time.Time, sum string, logger *slog.Logger) (string, bool) {
	meta, _ := days.Meta().LoadDayMeta(date)
	if meta.TextChecksum == sum {
		return "", false
	}
	kind := KindUpdated
	if meta.TextChecksum == "" {
		kind = KindCreated
	}
	loaded, err := days.LoadDay(ctx, date)
	if err != nil {
		logger.Warn("watcher: reconcile failed",
			slog.String("date", models.DateKey(date)),
			slog.String("error", err.Error()))
		return "", false
	}
	logger.Debug("watcher: reconciled",
		slog.String("date", models.DateKey(date)),
		slog.String("op", kind),
		slog.Int("warnings", len(loaded.Warnings)))
	return kind, true
}
