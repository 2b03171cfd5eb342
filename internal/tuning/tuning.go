// Package tuning hot-reloads the non-hot-path allocator knobs (pool
// size, directory capacity, recycling) from a JSON file, the way
// watch_fsnotify.go hot-reloads filesystem watches: a fsnotify watcher
// feeds a channel, and the latest decoded value is published behind
// an atomic pointer for lock-free reads. The allocator engine does not
// read the watcher at all; the published value is only seen by callers
// of Current, for example when they build a new Engine from it.
package tuning

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// Settings mirrors allocator.Config's tunables in a form that can be
// decoded from JSON.
type Settings struct {
	PoolSize     uintptr `json:"pool_size"`
	DirectoryCap uintptr `json:"directory_capacity"`
	RecyclingOn  bool    `json:"recycling_enabled"`
}

// Watcher republishes Settings read from a file whenever it changes
// on disk. The zero value is not usable; construct with NewWatcher.
type Watcher struct {
	current atomic.Pointer[Settings]
	fsw     *fsnotify.Watcher
	path    string
}

// NewWatcher loads path once synchronously and starts watching it for
// further changes. If path does not exist, defaults are published and
// no watch is attempted; this lets a deployment add the file later
// without restarting the process running the allocator.
func NewWatcher(path string, defaults Settings) (*Watcher, error) {
	w := &Watcher{path: path}
	w.current.Store(&defaults)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return w, nil
	}

	if err := w.reload(); err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("tuning: create watcher: %w", err)
	}

	if err := fsw.Add(path); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("tuning: watch %s: %w", path, err)
	}

	w.fsw = fsw

	return w, nil
}

// Run blocks, republishing Settings on every write event until ctx is
// canceled. Call it from its own goroutine.
func (w *Watcher) Run(ctx context.Context) {
	if w.fsw == nil {
		return
	}

	defer w.fsw.Close()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}

			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			if err := w.reload(); err != nil {
				log.Printf("tuning: reload %s: %v", w.path, err)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}

			log.Printf("tuning: watch error: %v", err)
		}
	}
}

func (w *Watcher) reload() error {
	data, err := os.ReadFile(w.path)
	if err != nil {
		return fmt.Errorf("read %s: %w", w.path, err)
	}

	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("parse %s: %w", w.path, err)
	}

	w.current.Store(&s)

	return nil
}

// Current returns the most recently published Settings.
func (w *Watcher) Current() Settings {
	return *w.current.Load()
}
