// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package watch debounces filesystem change notifications on a coordinates
// manifest file and re-triggers a merge each time it settles.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Manifest is the coordinates-manifest file's JSON shape: one focal
// coordinate plus the dependency coordinates to resolve it against.
type Manifest struct {
	FocalCoordinate       string   `json:"focalCoordinate"`
	DependencyCoordinates []string `json:"dependencyCoordinates"`
}

// LoadManifest reads and decodes the manifest at path.
func LoadManifest(path string) (Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("watch: read manifest %s: %w", path, err)
	}
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return Manifest{}, fmt.Errorf("watch: decode manifest %s: %w", path, err)
	}
	return m, nil
}

// Handler is called with the freshly reloaded manifest once changes to the
// watched file have settled.
type Handler func(Manifest)

// Options configures a Watcher.
type Options struct {
	// DebounceWindow is how long to wait after the last write event before
	// reloading the manifest and calling the handler.
	DebounceWindow time.Duration
}

// DefaultOptions returns a 250ms debounce window, long enough to absorb an
// editor's save-as-temp-then-rename sequence without double-triggering.
func DefaultOptions() Options {
	return Options{DebounceWindow: 250 * time.Millisecond}
}

// Watcher watches a single coordinates manifest file for changes.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	handler  Handler
	debounce time.Duration

	done     chan struct{}
	stopOnce sync.Once

	mu       sync.RWMutex
	watching bool
}

// New creates a Watcher for the manifest at path. opts may be nil to accept
// DefaultOptions().
func New(path string, handler Handler, opts *Options) (*Watcher, error) {
	if opts == nil {
		defaults := DefaultOptions()
		opts = &defaults
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch: resolve path %s: %w", path, err)
	}

	return &Watcher{
		path:     abs,
		watcher:  fsw,
		handler:  handler,
		debounce: opts.DebounceWindow,
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching. fsnotify watches the containing directory rather
// than the file directly, since editors and atomic-rename deployment tools
// replace the inode on every save and a direct file watch would silently
// stop firing after the first one.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.watching {
		w.mu.Unlock()
		return nil
	}
	w.watching = true
	w.mu.Unlock()

	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch: add %s: %w", filepath.Dir(w.path), err)
	}

	go w.loop(ctx)
	return nil
}

// Stop stops the watcher. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.watcher.Close()
		w.mu.Lock()
		w.watching = false
		w.mu.Unlock()
	})
}

// IsWatching reports whether Start has been called without a matching Stop.
func (w *Watcher) IsWatching() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.watching
}

func (w *Watcher) loop(ctx context.Context) {
	var timer *time.Timer
	var timerC <-chan time.Time

	trigger := func() {
		manifest, err := LoadManifest(w.path)
		if err != nil {
			// Likely an in-progress write; the next settled event retries.
			return
		}
		if w.handler != nil {
			w.handler(manifest)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case <-timerC:
			trigger()
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}
