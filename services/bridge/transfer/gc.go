// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package transfer

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// GCRunner runs periodic garbage collection on the staging directory.
type GCRunner struct {
	manager  *Manager
	interval time.Duration
	maxAge   time.Duration
	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
	logger   *slog.Logger
}

// NewGCRunner creates a collection runner.
//
// Description:
//
//	Creates a runner that periodically deletes staged files older than
//	maxAge. Call Start() to begin collection and Stop() to halt it.
//
// Inputs:
//   - m: the staging manager. Must not be nil.
//   - interval: how often to scan. Must be positive.
//   - maxAge: the age past which files are reclaimed. Must be positive.
//   - logger: optional logger for collection events.
//
// Outputs:
//   - *GCRunner: the runner. Not started until Start() is called.
//   - error: non-nil if inputs are invalid.
func NewGCRunner(m *Manager, interval, maxAge time.Duration, logger *slog.Logger) (*GCRunner, error) {
	if m == nil {
		return nil, errors.New("manager must not be nil")
	}
	if interval <= 0 {
		return nil, errors.New("interval must be positive")
	}
	if maxAge <= 0 {
		return nil, errors.New("maxAge must be positive")
	}

	return &GCRunner{
		manager:  m,
		interval: interval,
		maxAge:   maxAge,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		logger:   logger,
	}, nil
}

// Start begins periodic collection. Safe to call once per runner.
func (r *GCRunner) Start() {
	go r.run()
}

// Stop halts collection and waits for the loop to exit. Safe to call
// multiple times.
func (r *GCRunner) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
	<-r.doneCh
}

func (r *GCRunner) run() {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.collect()
		}
	}
}

func (r *GCRunner) collect() {
	deleted, err := r.manager.GC(r.maxAge)
	if err != nil {
		if r.logger != nil {
			r.logger.Warn("staging GC error", slog.String("error", err.Error()))
		}
		return
	}
	if deleted > 0 && r.logger != nil {
		r.logger.Debug("staging GC completed",
			slog.Int("deleted", deleted),
			slog.String("dir", r.manager.Dir()))
	}
}
