// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package watch re-runs work when fixture files change.
//
// Editors often save by writing a temporary file and renaming it over the
// original, which drops a watch placed on the file itself. Watcher
// therefore watches each file's parent directory and filters events by
// name.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ErrNoPaths is returned by New when there is nothing to watch.
var ErrNoPaths = errors.New("watch: no paths")

// Handler receives the sorted, deduplicated set of changed files after the
// debounce window closes. It runs on the watcher's goroutine; events that
// arrive meanwhile are batched for the next call.
type Handler func(ctx context.Context, changed []string)

// Options configures a Watcher.
type Options struct {
	// Debounce is how long to wait for more changes before calling the
	// handler.
	// Default: 150ms
	Debounce time.Duration

	// Logger receives watch errors. Nil uses slog.Default().
	Logger *slog.Logger
}

// DefaultOptions returns the default options.
func DefaultOptions() Options {
	return Options{Debounce: 150 * time.Millisecond}
}

// Watcher calls a Handler when any of a fixed set of files changes.
//
// Thread Safety: Run must be called once. Close is safe from any goroutine.
type Watcher struct {
	files    map[string]struct{}
	watcher  *fsnotify.Watcher
	handler  Handler
	debounce time.Duration
	logger   *slog.Logger
}

// New watches the given files.
func New(paths []string, h Handler, opts Options) (*Watcher, error) {
	if len(paths) == 0 {
		return nil, ErrNoPaths
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultOptions().Debounce
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{
		files:    make(map[string]struct{}, len(paths)),
		watcher:  fw,
		handler:  h,
		debounce: opts.Debounce,
		logger:   opts.Logger,
	}
	dirs := make(map[string]struct{})
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			fw.Close()
			return nil, err
		}
		w.files[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	return w, nil
}

// Run delivers batches until ctx is done or Close is called. Pending
// changes are dropped on exit.
func (w *Watcher) Run(ctx context.Context) error {
	pending := make(map[string]struct{})
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			pending[filepath.Clean(event.Name)] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			timerC = timer.C

		case <-timerC:
			timer, timerC = nil, nil
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			clear(pending)
			slices.Sort(changed)
			w.logger.Debug("fixtures changed", slog.Any("paths", changed))
			w.handler(ctx, changed)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", slog.String("error", err.Error()))
		}
	}
}

// Close stops the watcher. Run returns nil afterwards.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	_, ok := w.files[filepath.Clean(event.Name)]
	return ok
}
