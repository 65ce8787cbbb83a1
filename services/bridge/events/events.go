// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package events collects scene invalidation events for client polling.
//
// Clients that cache scene state poll the queue to learn what to
// invalidate. Events carry a coarse scope rather than a diff: a client
// that sees node_deleted for a network drops everything under it.
package events

import (
	"sync"
	"time"
)

// DefaultCapacity bounds the queue when no capacity is configured.
const DefaultCapacity = 1000

// Event types, one per observable scene change.
const (
	EventCookComplete      = "cook_complete"
	EventParmChanged       = "parm_changed"
	EventNodeCreated       = "node_created"
	EventNodeDeleted       = "node_deleted"
	EventConnectionChanged = "connection_changed"
	EventFrameChanged      = "frame_changed"
	EventHipSaved          = "hip_saved"
)

// Invalidation scopes, narrowest to widest.
const (
	ScopeNode    = "node"
	ScopeNetwork = "network"
	ScopeScene   = "scene"
)

// Event is one invalidation notice as it appears on the wire.
type Event struct {
	Event     string  `json:"event"`
	EventType string  `json:"event_type"`
	Scope     string  `json:"scope"`
	Path      string  `json:"path"`
	Timestamp float64 `json:"timestamp"`
}

// NewEvent builds a timestamped invalidation event.
func NewEvent(eventType, scope, path string) Event {
	return Event{
		Event:     "invalidate",
		EventType: eventType,
		Scope:     scope,
		Path:      path,
		Timestamp: float64(timeNow().UnixNano()) / 1e9,
	}
}

// timeNow is a hook for deterministic timestamps in tests.
var timeNow = time.Now

// ============================================================================
// QUEUE
// ============================================================================

// Queue is a bounded FIFO of invalidation events.
//
// Push never blocks and never fails: at capacity the oldest event is
// evicted. Clients that poll slower than the scene changes lose history,
// not liveness.
//
// Thread Safety: all methods are safe for concurrent use.
type Queue struct {
	mu       sync.Mutex
	capacity int
	events   []Event
}

// NewQueue creates a queue holding at most capacity events. Zero or
// negative capacity falls back to DefaultCapacity.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue{capacity: capacity}
}

// Push appends a new event, evicting the oldest at capacity.
func (q *Queue) Push(eventType, scope, path string) {
	q.push(NewEvent(eventType, scope, path))
}

func (q *Queue) push(e Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) >= q.capacity {
		drop := len(q.events) - q.capacity + 1
		q.events = q.events[drop:]
	}
	q.events = append(q.events, e)
}

// Drain removes and returns all queued events, oldest first. Concurrent
// drains never deliver the same event twice.
func (q *Queue) Drain() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.events
	q.events = nil
	if out == nil {
		out = []Event{}
	}
	return out
}

// Len reports the number of queued events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// ============================================================================
// BUS
// ============================================================================

// Sink receives a copy of every published event.
//
// Record is called on the host thread and must not block; sinks that do
// slow work buffer internally and drop on overflow.
type Sink interface {
	Record(Event)
}

// Bus couples the poll queue with broadcast sinks. Publishing enqueues
// for pollers and fans out to every sink; a sink cannot fail a publish.
type Bus struct {
	queue *Queue
	sinks []Sink
}

// NewBus wraps a queue with zero or more sinks.
func NewBus(q *Queue, sinks ...Sink) *Bus {
	return &Bus{queue: q, sinks: sinks}
}

// Queue returns the poll queue behind the bus.
func (b *Bus) Queue() *Queue { return b.queue }

// Push builds and publishes a new event.
func (b *Bus) Push(eventType, scope, path string) {
	b.Publish(NewEvent(eventType, scope, path))
}

// Publish delivers an already-built event to the queue and all sinks.
func (b *Bus) Publish(e Event) {
	b.queue.push(e)
	for _, s := range b.sinks {
		s.Record(e)
	}
}
