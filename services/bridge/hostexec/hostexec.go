// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package hostexec serializes all access to a scene host onto a single
// locked OS thread.
//
// Scene hosts expose APIs that are not safe to call concurrently, and
// some embedlings require every call to arrive on the thread that
// initialized them. The Serializer owns that thread: callers submit
// closures through Run and block for the result, while the host sees a
// strictly sequential stream of work.
package hostexec

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/AleutianAI/SceneBridge/services/bridge/contract"
	"github.com/AleutianAI/SceneBridge/services/bridge/host"
)

// ============================================================================
// CONFIGURATION
// ============================================================================

// Config controls the serializer's queue and timeout behavior.
type Config struct {
	// QueueSize is the number of jobs that may wait for the host thread
	// before submissions are rejected.
	// Default: 1000
	QueueSize int

	// DefaultTimeout bounds a job's total wait when the caller does not
	// supply one.
	// Default: 30s
	DefaultTimeout time.Duration
}

// DefaultConfig returns the standard serializer configuration.
func DefaultConfig() Config {
	return Config{
		QueueSize:      1000,
		DefaultTimeout: 30 * time.Second,
	}
}

// ============================================================================
// TYPES
// ============================================================================

// HostFunc is a unit of work executed on the host thread.
//
// The closure receives the host and must not retain it past its return.
// Returning a *contract.Error reports a domain failure; any other
// failure mode should be wrapped into one before returning.
type HostFunc func(ctx context.Context, h host.Host) (any, *contract.Error)

type jobResult struct {
	value any
	err   *contract.Error
}

type job struct {
	ctx   context.Context
	fn    HostFunc
	reply chan jobResult
}

// hostThreadKey marks contexts already executing on the host thread so
// nested Run calls execute inline instead of deadlocking on the queue.
type hostThreadKey struct{}

// OnHostThread reports whether ctx is executing on the host thread.
func OnHostThread(ctx context.Context) bool {
	v, _ := ctx.Value(hostThreadKey{}).(bool)
	return v
}

// ============================================================================
// SERIALIZER
// ============================================================================

// Serializer funnels host work onto one locked OS thread.
//
// Thread Safety: all exported methods are safe for concurrent use.
type Serializer struct {
	cfg  Config
	host host.Host
	jobs chan *job

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// New creates a serializer for the given host.
//
// Inputs:
//   - h: the scene host all submitted closures will see
//   - cfg: queue and timeout settings; zero fields fall back to defaults
//
// Outputs:
//   - *Serializer: ready to Start
func New(h host.Host, cfg Config) *Serializer {
	def := DefaultConfig()
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = def.DefaultTimeout
	}
	return &Serializer{
		cfg:    cfg,
		host:   h,
		jobs:   make(chan *job, cfg.QueueSize),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start launches the host thread. Call once.
func (s *Serializer) Start() {
	go s.loop()
}

// QueueDepth reports how many jobs are waiting for the host thread.
func (s *Serializer) QueueDepth() int {
	return len(s.jobs)
}

// Running reports whether the serializer is still accepting work.
func (s *Serializer) Running() bool {
	select {
	case <-s.stopCh:
		return false
	default:
		return true
	}
}

// Stop shuts the host thread down after the in-flight job finishes.
// Queued jobs are failed with HOST_UNAVAILABLE rather than executed.
//
// Errors:
//   - ctx.Err() if the in-flight job does not finish before ctx expires
func (s *Serializer) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stopCh) })
	select {
	case <-s.doneCh:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("host thread did not stop: %w", ctx.Err())
	}
}

// Run submits fn to the host thread and waits for its result.
//
// Description:
//
//	Run blocks until fn completes, the timeout elapses, or ctx is
//	canceled. On timeout the job is abandoned, not interrupted: it
//	still runs to completion on the host thread and its result is
//	discarded. Calls made from within a running job execute inline on
//	the host thread, so handlers may compose host operations freely.
//
// Inputs:
//   - ctx: caller's context; cancellation abandons the wait
//   - timeout: per-call bound; zero or negative uses the default
//   - fn: the work to execute
//
// Outputs:
//   - any: fn's result on success
//   - *contract.Error: TIMEOUT when the wait expired, HOST_UNAVAILABLE
//     when the queue is full or the serializer is stopped, otherwise
//     whatever fn returned
func (s *Serializer) Run(ctx context.Context, timeout time.Duration, fn HostFunc) (any, *contract.Error) {
	if OnHostThread(ctx) {
		return fn(ctx, s.host)
	}
	if timeout <= 0 {
		timeout = s.cfg.DefaultTimeout
	}

	j := &job{
		ctx: ctx,
		fn:  fn,
		// Buffered so an abandoned job's reply never blocks the host thread.
		reply: make(chan jobResult, 1),
	}

	select {
	case <-s.stopCh:
		return nil, contract.NewError(contract.CodeHostUnavailable, "host executor is stopped")
	default:
	}

	select {
	case s.jobs <- j:
	default:
		return nil, contract.Errorf(contract.CodeHostUnavailable,
			"host queue is full (%d pending)", s.cfg.QueueSize)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-j.reply:
		return res.value, res.err
	case <-timer.C:
		slog.Warn("host job abandoned after timeout", "timeout", timeout.String())
		return nil, contract.Errorf(contract.CodeTimeout,
			"host did not respond within %s", timeout)
	case <-ctx.Done():
		return nil, contract.NewError(contract.CodeTimeout, "request canceled while waiting for host")
	case <-s.doneCh:
		return nil, contract.NewError(contract.CodeHostUnavailable, "host executor is stopped")
	}
}

// ============================================================================
// HOST THREAD
// ============================================================================

func (s *Serializer) loop() {
	// Hosts that care about thread affinity get one stable OS thread.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(s.doneCh)

	for {
		select {
		case <-s.stopCh:
			s.drain()
			return
		case j := <-s.jobs:
			// Both cases can be ready at once and select picks at
			// random, so recheck stop before executing: jobs queued
			// ahead of Stop must fail, not run.
			select {
			case <-s.stopCh:
				j.reply <- jobResult{err: contract.NewError(contract.CodeHostUnavailable, "host executor is stopped")}
				s.drain()
				return
			default:
			}
			s.execute(j)
		}
	}
}

// execute runs one job, converting panics into INTERNAL_ERROR so a
// misbehaving closure cannot take the host thread down.
func (s *Serializer) execute(j *job) {
	if j.ctx.Err() != nil {
		j.reply <- jobResult{err: contract.NewError(contract.CodeTimeout, "request canceled before execution")}
		return
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("host job panicked", "panic", fmt.Sprintf("%v", r))
			j.reply <- jobResult{err: contract.Errorf(contract.CodeInternalError, "host job panicked: %v", r)}
		}
	}()

	ctx := context.WithValue(j.ctx, hostThreadKey{}, true)
	value, cerr := j.fn(ctx, s.host)
	j.reply <- jobResult{value: value, err: cerr}
}

// drain fails everything still queued at shutdown.
func (s *Serializer) drain() {
	for {
		select {
		case j := <-s.jobs:
			j.reply <- jobResult{err: contract.NewError(contract.CodeHostUnavailable, "host executor is stopped")}
		default:
			return
		}
	}
}
