package manifest

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher invalidates cached manifests when their fallback files change on
// disk, so an operator edit takes effect before the TTL would expire.
// Watcher failure degrades to TTL-only freshness and is never fatal.
type Watcher struct {
	fsw    *fsnotify.Watcher
	cache  *Cache
	logger *slog.Logger
}

// NewWatcher watches dir for channel manifest changes.
func NewWatcher(dir string, cache *Cache, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{fsw: fsw, cache: cache, logger: logger}, nil
}

// Run processes filesystem events until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) &&
				!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			ch, ok := channelFromFileName(filepath.Base(ev.Name))
			if !ok {
				continue
			}
			w.cache.Invalidate(ch)
			w.logger.Info("manifest file changed, cache invalidated",
				"channel", ch, "op", ev.Op.String())
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("manifest watcher error", "error", err)
		}
	}
}

// Close stops the underlying filesystem watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
