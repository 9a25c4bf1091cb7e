package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"ltpbot/internal/logger"
)

const watchDebounce = 250 * time.Millisecond

// Watch reloads the configuration whenever path or one of its includes
// changes and passes every valid result to onChange. Invalid edits are logged
// and ignored. It blocks until ctx is done.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	files, err := resolveConfigIncludes(path)
	if err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	defer watcher.Close()

	tracked := make(map[string]bool, len(files))
	dirs := make(map[string]bool)
	for _, f := range files {
		tracked[filepath.Clean(f)] = true
		dirs[filepath.Dir(f)] = true
	}
	// editors replace files by rename, so watch directories rather than files
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	logger.Infof("config watcher: tracking %d file(s)", len(tracked))

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !tracked[filepath.Clean(ev.Name)] {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				debounce = time.After(watchDebounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warnf("config watcher: %v", err)
		case <-debounce:
			debounce = nil
			cfg, err := Load(path)
			if err != nil {
				logger.Warnf("config watcher: reload failed, keeping previous config: %v", err)
				continue
			}
			logger.Infof("config watcher: reloaded %s", path)
			if onChange != nil {
				onChange(cfg)
			}
		}
	}
}
