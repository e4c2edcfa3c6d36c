// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package filewatcher reports debounced changes to a single file.
package filewatcher

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounceDelay is the quiet period before a change is reported.
const DefaultDebounceDelay = 200 * time.Millisecond

// Watcher monitors one file for changes. Bursts of events, such as an
// editor's write-and-rename save, are coalesced into one change.
type Watcher struct {
	// fsWatcher is the underlying filesystem watcher
	fsWatcher *fsnotify.Watcher

	// path is the absolute path of the watched file
	path string

	logger        *slog.Logger
	debounceDelay time.Duration

	// changes carries at most one pending change notification
	changes chan struct{}

	// pending is the debounce timer for the current burst of events
	pending *time.Timer
	mu      sync.Mutex

	done chan struct{}
	wg   sync.WaitGroup
}

// Config configures the file watcher.
type Config struct {
	// Logger is used for structured logging (optional)
	Logger *slog.Logger

	// DebounceDelay is the quiet period before a change is reported (defaults to 200ms)
	DebounceDelay time.Duration
}

// New starts watching path. The parent directory is watched so that
// files replaced by rename are still seen.
func New(path string, cfg Config) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", path, err)
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsWatcher.Add(filepath.Dir(absPath)); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", absPath, err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	debounceDelay := cfg.DebounceDelay
	if debounceDelay == 0 {
		debounceDelay = DefaultDebounceDelay
	}

	w := &Watcher{
		fsWatcher:     fsWatcher,
		path:          absPath,
		logger:        logger,
		debounceDelay: debounceDelay,
		changes:       make(chan struct{}, 1),
		done:          make(chan struct{}),
	}

	w.wg.Add(1)
	go w.processEvents()

	logger.Debug("watching file", slog.String("path", absPath))
	return w, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

// Changes delivers one value per debounced change. Changes that arrive
// while a notification is still unread are merged into it.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				w.logger.Debug("file event", slog.String("path", event.Name), slog.String("op", event.Op.String()))
				w.schedule()
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("file watcher error", slog.Any("error", err))

		case <-w.done:
			return
		}
	}
}

// schedule restarts the debounce timer.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.pending != nil {
		w.pending.Stop()
	}
	w.pending = time.AfterFunc(w.debounceDelay, w.notify)
}

func (w *Watcher) notify() {
	select {
	case <-w.done:
		return
	default:
	}

	select {
	case w.changes <- struct{}{}:
	default:
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	select {
	case <-w.done:
		return nil
	default:
		close(w.done)
	}

	w.mu.Lock()
	if w.pending != nil {
		w.pending.Stop()
	}
	w.mu.Unlock()

	err := w.fsWatcher.Close()
	w.wg.Wait()
	return err
}
