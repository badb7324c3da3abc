package walletadapter

import (
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// WatchConfigFile applies on-disk config edits live using fsnotify.
// It watches both the directory and the file to survive atomic saves.
// Invalid edits are logged and the running config is kept.
func WatchConfigFile(path string, store *ConfigStore) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, err
	}
	_ = watcher.Add(path)

	cleanPath := filepath.Clean(path)
	baseName := filepath.Base(cleanPath)

	go func() {
		slog.Debug("config watcher loop started", "path", cleanPath)
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != cleanPath && filepath.Base(event.Name) != baseName {
					continue
				}
				slog.Debug("config watcher event", "op", event.Op.String(), "name", event.Name)

				if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
					// Atomic saves replace the file; re-add the watch on the new inode.
					_ = watcher.Remove(path)
					_ = watcher.Add(path)
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
					continue
				}
				reloadConfig(path, store)

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Error("config watcher error", "path", path, "error", err)
			}
		}
	}()

	return watcher, nil
}

func reloadConfig(path string, store *ConfigStore) {
	cfg, err := LoadConfig(path)
	if err != nil {
		slog.Error("config reload failed", "path", path, "error", err)
		return
	}
	if err := cfg.Validate(); err != nil {
		slog.Warn("config reload rejected", "path", path, "error", err)
		return
	}
	// Logging first so listener output uses the new level.
	InitLogger(cfg.Logging)
	if err := store.Set(cfg); err != nil {
		slog.Error("config apply failed", "path", path, "error", err)
		return
	}
	slog.Info("config reloaded from disk", "path", path, "currencies", len(cfg.Currencies))
}
