package datasource

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/huangsam/miklabel/internal/contract"
	"github.com/huangsam/miklabel/schema"
)

// isDocumentEvent reports whether ev touches one of the watched documents.
func isDocumentEvent(ev fsnotify.Event) bool {
	switch filepath.Base(ev.Name) {
	case schema.RepoSetsDocument, schema.PersonSetsDocument:
	default:
		return false
	}
	return ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) || ev.Has(fsnotify.Rename)
}

// Watch reloads whenever a document in dir changes, coalescing events that
// arrive within debounce. It returns when ctx is done; a reload already
// running is allowed to finish first.
func (ds *DataSource) Watch(ctx context.Context, dir string, debounce time.Duration) error {
	if debounce <= 0 {
		debounce = contract.DefaultReloadDebounce
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Watch the directory so editors that replace files by rename are seen
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	ds.logger.Info("watching data source", "dir", dir, "debounce", debounce)

	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if isDocumentEvent(ev) {
				ds.logger.Debug("document changed", "path", ev.Name, "op", ev.Op.String())
				fire = time.After(debounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			ds.logger.Warn("watcher error", "error", err)
		case <-fire:
			fire = nil
			_ = ds.Reload(context.WithoutCancel(ctx))
		}
	}
}

// Poll reloads every interval until ctx is done. It is used for sources
// that cannot be watched, such as HTTP.
func (ds *DataSource) Poll(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("poll interval must be positive (received %s)", interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			_ = ds.Reload(context.WithoutCancel(ctx))
		}
	}
}
