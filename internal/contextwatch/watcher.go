// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package contextwatch keeps a document context file in sync with the
// pending context attached to outgoing questions.
package contextwatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// MaxContextBytes bounds how much of a context file is read.
const MaxContextBytes = 1 << 20

// DefaultDebounce coalesces bursts of writes from editors.
const DefaultDebounce = 250 * time.Millisecond

// ErrEmptyPath is returned when no context file is configured.
var ErrEmptyPath = errors.New("contextwatch: empty path")

// Update reports the current content of the watched file.
type Update struct {
	Path    string
	Text    string
	Removed bool
	Err     error
}

// =============================================================================
// READING
// =============================================================================

// ReadContext reads a context file, trimmed and capped at MaxContextBytes.
func ReadContext(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxContextBytes))
	if err != nil {
		return "", fmt.Errorf("read context file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// =============================================================================
// WATCHER
// =============================================================================

// Watcher emits an Update whenever the context file changes. The parent
// directory is watched so that editors that replace the file on save are
// still followed.
type Watcher struct {
	path     string
	debounce time.Duration

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a watcher for path. A debounce of zero uses DefaultDebounce.
func New(path string, debounce time.Duration) (*Watcher, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrEmptyPath
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{path: abs, debounce: debounce}, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

// Start begins watching. The returned channel first receives the current
// file content and is closed when ctx is cancelled or Close is called.
func (w *Watcher) Start(ctx context.Context) (<-chan Update, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.watcher != nil {
		return nil, errors.New("contextwatch: already started")
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}

	ctx, cancel := context.WithCancel(ctx)
	w.watcher = fw
	w.cancel = cancel
	w.done = make(chan struct{})

	out := make(chan Update, 4)
	go w.run(ctx, fw, out)

	slog.Info("watching context file", "path", w.path)
	return out, nil
}

// Close stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Close() error {
	w.mu.Lock()
	fw, cancel, done := w.watcher, w.cancel, w.done
	w.mu.Unlock()

	if fw == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

func (w *Watcher) run(ctx context.Context, fw *fsnotify.Watcher, out chan<- Update) {
	defer close(w.done)
	defer close(out)
	defer fw.Close()

	if !w.emit(ctx, out, w.read()) {
		return
	}

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			if !w.emit(ctx, out, w.read()) {
				return
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			slog.Warn("context watcher error", "path", w.path, "error", err)
			if !w.emit(ctx, out, Update{Path: w.path, Err: err}) {
				return
			}
		}
	}
}

func (w *Watcher) read() Update {
	text, err := ReadContext(w.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return Update{Path: w.path, Removed: true}
	case err != nil:
		return Update{Path: w.path, Err: err}
	}
	return Update{Path: w.path, Text: text}
}

func (w *Watcher) emit(ctx context.Context, out chan<- Update, u Update) bool {
	select {
	case out <- u:
		return true
	case <-ctx.Done():
		return false
	}
}
