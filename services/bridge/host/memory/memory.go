// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package memory provides an in-memory reference implementation of
// host.Host.
//
// The reference host models a small but real node graph: manager networks
// (/obj, /out), geometry containers, and a table of surface operator types
// (grid, scatter, color, merge, switch, null) whose cooks synthesize actual
// attribute arrays. It exists so the bridge can be developed and tested
// without an embedding application, and it reproduces the semantics the
// bridge depends on: lazy cooking, dirty propagation through wires, flag
// behavior, undo grouping, and synchronous change notification.
//
// # Thread Safety
//
// Like the real hosts it stands in for, Host is NOT safe for concurrent
// use; route all calls through one goroutine (the execution serializer
// does exactly that). Subscribe and the remove functions it returns are
// the only exceptions and may be called from any goroutine.
package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/AleutianAI/SceneBridge/services/bridge/host"
)

// DefaultFPS is the playback rate reported until a scene sets another.
const DefaultFPS = 24.0

// Host is the in-memory scene.
type Host struct {
	root      *node
	frame     float64
	fps       float64
	scenePath string

	undoDepth  int
	undoLabels []string

	// listenerMu guards only the listener registry. Everything else in
	// Host relies on single-threaded access.
	listenerMu   sync.Mutex
	listeners    map[int]host.Listener
	nextListener int
}

// Option configures a Host.
type Option func(*Host)

// WithScenePath sets the scene file path reported by SceneInfo and used
// by SaveScene when no explicit path is given.
func WithScenePath(path string) Option {
	return func(h *Host) { h.scenePath = path }
}

// WithFPS sets the playback rate.
func WithFPS(fps float64) Option {
	return func(h *Host) { h.fps = fps }
}

// New creates a Host with the standard root networks (/obj, /out).
func New(opts ...Option) *Host {
	h := &Host{
		frame:     1,
		fps:       DefaultFPS,
		listeners: make(map[int]host.Listener),
	}
	for _, opt := range opts {
		opt(h)
	}

	h.root = &node{name: "", typeName: "root", category: categoryDirector, flags: map[string]bool{}}
	for _, name := range []string{"obj", "out"} {
		mgr := &node{
			name:     name,
			typeName: name + "net",
			category: categoryManager,
			parent:   h.root,
			flags:    map[string]bool{},
		}
		h.root.children = append(h.root.children, mgr)
	}
	return h
}

// SceneInfo returns a summary of the live scene.
func (h *Host) SceneInfo() (*host.SceneStats, error) {
	roots := make([]string, 0, len(h.root.children))
	for _, c := range h.root.children {
		roots = append(roots, c.path())
	}
	return &host.SceneStats{
		FilePath:  h.scenePath,
		Frame:     h.frame,
		FPS:       h.fps,
		NodeCount: h.root.countDescendants(),
		RootPaths: roots,
	}, nil
}

// SetFrame moves the playbar.
func (h *Host) SetFrame(frame float64) error {
	if frame == h.frame {
		return nil
	}
	h.frame = frame
	h.emit(host.Change{Kind: host.ChangeFrameChanged, Frame: frame})
	return nil
}

// Frame returns the current playbar frame.
func (h *Host) Frame() float64 { return h.frame }

// SaveScene serializes the node graph to disk as JSON.
//
// An empty path saves to the scene's current file; a never-saved scene
// falls back to untitled.hip in the working directory.
func (h *Host) SaveScene(path string) (string, error) {
	if path == "" {
		path = h.scenePath
	}
	if path == "" {
		path = "untitled.hip"
	}

	doc := map[string]any{
		"format":  "scenebridge-scene",
		"version": 1,
		"frame":   h.frame,
		"fps":     h.fps,
		"root":    h.root.serialize(),
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("serialize scene: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write scene file: %w", err)
	}

	h.scenePath = path
	h.emit(host.Change{Kind: host.ChangeSceneSaved, ScenePath: path})
	return path, nil
}

// BeginUndo opens an undo group. Nested groups collapse into the
// outermost one, matching host undo semantics.
func (h *Host) BeginUndo(label string) (end func()) {
	h.undoDepth++
	if h.undoDepth == 1 {
		h.undoLabels = append(h.undoLabels, label)
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			if h.undoDepth > 0 {
				h.undoDepth--
			}
		})
	}
}

// UndoLabels returns the labels of all outermost undo groups opened so
// far, oldest first.
func (h *Host) UndoLabels() []string {
	out := make([]string, len(h.undoLabels))
	copy(out, h.undoLabels)
	return out
}

// Subscribe registers a change listener. Safe from any goroutine.
func (h *Host) Subscribe(fn host.Listener) (remove func()) {
	h.listenerMu.Lock()
	id := h.nextListener
	h.nextListener++
	h.listeners[id] = fn
	h.listenerMu.Unlock()

	return func() {
		h.listenerMu.Lock()
		delete(h.listeners, id)
		h.listenerMu.Unlock()
	}
}

// emit delivers a change to every listener, synchronously.
func (h *Host) emit(c host.Change) {
	h.listenerMu.Lock()
	fns := make([]host.Listener, 0, len(h.listeners))
	for _, fn := range h.listeners {
		fns = append(fns, fn)
	}
	h.listenerMu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}

// now is a hook for cook timing.
var now = time.Now
