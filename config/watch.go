package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceWindow coalesces editor write bursts into one reload.
const debounceWindow = 200 * time.Millisecond

// Watch observes the project's config directory and invokes onChange
// with freshly loaded settings whenever the config file is written.
// It blocks until ctx is cancelled. A root without a config file is an
// error: there is nothing to watch.
//
// Lookups through ResolveRole already re-read the file per call;
// Watch exists for long-running callers that want to react to role
// remapping (e.g. to log it) rather than merely pick it up lazily.
func Watch(ctx context.Context, root string, logger *slog.Logger, onChange func(*Settings)) error {
	path := FilePath(root)
	if path == "" {
		return fmt.Errorf("no config file under %s", root)
	}
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory, not the file: editors replace files on save,
	// which drops a file-level watch.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	var pending *time.Timer
	var pendingC <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != path || !event.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			if pending == nil {
				pending = time.NewTimer(debounceWindow)
				pendingC = pending.C
			} else {
				pending.Reset(debounceWindow)
			}

		case <-pendingC:
			pending = nil
			pendingC = nil
			s, err := Load(root)
			if err != nil {
				logger.Warn("config reload failed", "path", path, "error", err)
				continue
			}
			logger.Debug("config reloaded", "path", path)
			onChange(s)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher error", "error", err)
		}
	}
}
