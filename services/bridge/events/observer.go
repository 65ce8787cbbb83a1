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
	"sync"

	"github.com/AleutianAI/SceneBridge/services/bridge/host"
)

// Observer bridges host change notifications onto the event bus.
//
// Start and Stop are idempotent; the zero observer is stopped. Change
// callbacks arrive on the host thread, so translation stays allocation-
// light and the bus push is non-blocking.
type Observer struct {
	bus *Bus

	mu     sync.Mutex
	active bool
	remove func()
}

// NewObserver creates an observer publishing to bus.
func NewObserver(bus *Bus) *Observer {
	return &Observer{bus: bus}
}

// Start subscribes to host changes. Calling Start on an active observer
// is a no-op.
func (o *Observer) Start(h host.Host) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active {
		return
	}
	o.remove = h.Subscribe(o.handle)
	o.active = true
}

// Stop unsubscribes. Safe to call when never started.
func (o *Observer) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.active {
		return
	}
	o.remove()
	o.remove = nil
	o.active = false
}

// Active reports whether the observer is subscribed.
func (o *Observer) Active() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active
}

func (o *Observer) handle(c host.Change) {
	e, ok := eventFromChange(c)
	if !ok {
		return
	}
	o.bus.Publish(e)
}

// eventFromChange maps a host change onto the wire vocabulary. Kinds
// outside the mapping are dropped, never defaulted.
func eventFromChange(c host.Change) (Event, bool) {
	switch c.Kind {
	case host.ChangeChildCreated:
		return NewEvent(EventNodeCreated, ScopeNetwork, c.Child), true
	case host.ChangeChildDeleted:
		return NewEvent(EventNodeDeleted, ScopeNetwork, c.NodePath), true
	case host.ChangeParmTupleChanged:
		return NewEvent(EventParmChanged, ScopeNode, c.NodePath+"/"+c.ParmName), true
	case host.ChangeInputRewired:
		return NewEvent(EventConnectionChanged, ScopeNode, c.NodePath), true
	case host.ChangeAppearanceChanged:
		return NewEvent(EventCookComplete, ScopeNode, c.NodePath), true
	case host.ChangeFrameChanged:
		return NewEvent(EventFrameChanged, ScopeScene, fmt.Sprintf("frame:%g", c.Frame)), true
	case host.ChangeSceneSaved:
		return NewEvent(EventHipSaved, ScopeScene, c.ScenePath), true
	default:
		return Event{}, false
	}
}
