package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"codeloop/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches a config file for changes and delivers reloaded configs
// to a callback. Rapid editor save bursts are debounced so a reload fires
// once per settled change.
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	path        string
	onReload    func(*Config)
	lastEvent   time.Time
	pending     bool
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
}

// NewWatcher creates a watcher for the given config file path.
// onReload is called with the freshly loaded config after each settled change.
func NewWatcher(path string, onReload func(*Config)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		watcher:     fw,
		path:        path,
		onReload:    onReload,
		debounceDur: 500 * time.Millisecond,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching. Non-blocking; the watch loop runs in a goroutine.
// The parent directory is watched rather than the file itself so that
// editors which replace-on-save (rename over the original) are still seen.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		logging.ConfigWarn("config watch failed for %s: %v", dir, err)
	} else {
		logging.Config("watching config: %s", w.path)
	}

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		logging.ConfigWarn("error closing config watcher: %v", err)
	}
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.ConfigWarn("config watcher error: %v", err)

		case <-ticker.C:
			w.fireIfSettled()
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != filepath.Clean(w.path) {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}

	logging.ConfigDebug("config change event: %s (%s)", event.Name, event.Op)

	w.mu.Lock()
	w.lastEvent = time.Now()
	w.pending = true
	w.mu.Unlock()
}

func (w *Watcher) fireIfSettled() {
	w.mu.Lock()
	ready := w.pending && time.Since(w.lastEvent) >= w.debounceDur
	if ready {
		w.pending = false
	}
	w.mu.Unlock()

	if !ready {
		return
	}

	cfg, err := Load(w.path)
	if err != nil {
		logging.ConfigWarn("config reload failed, keeping previous: %v", err)
		return
	}

	logging.Config("config reloaded: %s", w.path)
	w.onReload(cfg)
}
