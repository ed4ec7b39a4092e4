package config

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ReloadDelay is how long Watch waits for writes to settle.
const ReloadDelay = 500 * time.Millisecond

// Watch calls fn with the reloaded config each time the file at path is
// written, until ctx is done. Bursts of writes collapse into one reload.
// A file that fails to parse is logged and skipped.
func Watch(ctx context.Context, path string, fn func(*Config)) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("config watcher: bad path %q: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config watcher: %w", err)
	}
	// Editors replace files on save, so watch the directory.
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		watcher.Close()
		return fmt.Errorf("config watcher: watch %q: %w", filepath.Dir(absPath), err)
	}

	go func() {
		defer watcher.Close()
		var timer *time.Timer
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if name, _ := filepath.Abs(event.Name); name != absPath {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(ReloadDelay, func() {
					cfg, err := Load(absPath)
					if err != nil {
						log.Printf("[CONFIG] reload failed: %v", err)
						return
					}
					log.Printf("[CONFIG] reloaded %s", absPath)
					fn(cfg)
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("[CONFIG] watcher error: %v", err)
			}
		}
	}()
	return nil
}
