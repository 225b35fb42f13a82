package preferences

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/esimkit/esimctl/internal/logging"
)

// reloadDelay batches the create/write/rename burst of an atomic save.
const reloadDelay = 50 * time.Millisecond

// Watch reloads the store whenever preferences.yaml changes on disk, so
// edits made by another esimctl process (or by hand) reach subscribers.
// It blocks until ctx is done.
func (r *Repository) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create preference watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Watch the directory: atomic saves replace the file, which drops
	// watches placed on the file itself.
	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create preferences directory: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	logging.Debug("Watching preferences", zap.String("path", r.path))

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != r.fileName() {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				pending = time.After(reloadDelay)
			}

		case <-pending:
			pending = nil
			if err := r.Reload(); err != nil {
				logging.Warn("Failed to reload preferences", zap.Error(err))
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Warn("Preference watcher error", zap.Error(err))
		}
	}
}
