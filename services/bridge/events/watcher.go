// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package events

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// SceneWatcher publishes hip_saved events when the scene file changes
// on disk outside the bridge, for example when an artist saves from the
// host application directly.
//
// The watch covers the file's directory because most hosts replace the
// file on save rather than writing in place.
type SceneWatcher struct {
	bus       *Bus
	path      string
	fsWatcher *fsnotify.Watcher
	doneCh    chan struct{}
}

// NewSceneWatcher creates a watcher for the given scene file path.
//
// Errors:
//   - fsnotify errors when the platform watcher cannot be created or
//     the file's directory cannot be watched
func NewSceneWatcher(bus *Bus, path string) (*SceneWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(path), err)
	}

	w := &SceneWatcher{
		bus:       bus,
		path:      filepath.Clean(path),
		fsWatcher: fsw,
		doneCh:    make(chan struct{}),
	}
	go w.watchLoop()
	return w, nil
}

// Close stops the watcher and waits for its loop to exit.
func (w *SceneWatcher) Close() error {
	err := w.fsWatcher.Close()
	<-w.doneCh
	return err
}

func (w *SceneWatcher) watchLoop() {
	defer close(w.doneCh)
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.bus.Push(EventHipSaved, ScopeScene, w.path)
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			slog.Warn("Scene file watcher error",
				"path", w.path,
				"error", err)
		}
	}
}
