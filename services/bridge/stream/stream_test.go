// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package stream

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/SceneBridge/services/bridge/events"
)

// newStreamServer starts a gin server exposing the hub and returns the
// hub plus the ws:// URL to dial.
func newStreamServer(t *testing.T) (*Hub, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := NewHub()
	router := gin.New()
	router.GET("/events/stream", hub.Handler())

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	t.Cleanup(hub.Close) // runs before srv.Close, releasing hijacked conns

	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/events/stream"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

// TestStreamDelivers checks that a published event reaches a subscriber
// with the wire shape intact.
func TestStreamDelivers(t *testing.T) {
	hub, url := newStreamServer(t)
	ws := dial(t, url)

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 },
		time.Second, 5*time.Millisecond)

	hub.Record(events.NewEvent(events.EventNodeCreated, events.ScopeNetwork, "/obj/geo1"))

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got events.Event
	require.NoError(t, ws.ReadJSON(&got))
	assert.Equal(t, "invalidate", got.Event)
	assert.Equal(t, events.EventNodeCreated, got.EventType)
	assert.Equal(t, events.ScopeNetwork, got.Scope)
	assert.Equal(t, "/obj/geo1", got.Path)
	assert.Greater(t, got.Timestamp, 0.0)
}

// TestStreamFanout checks that every subscriber receives each event.
func TestStreamFanout(t *testing.T) {
	hub, url := newStreamServer(t)
	first := dial(t, url)
	second := dial(t, url)

	require.Eventually(t, func() bool { return hub.ClientCount() == 2 },
		time.Second, 5*time.Millisecond)

	hub.Record(events.NewEvent(events.EventParmChanged, events.ScopeNode, "/obj/geo1/grid1/rows"))

	for _, ws := range []*websocket.Conn{first, second} {
		require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
		var got events.Event
		require.NoError(t, ws.ReadJSON(&got))
		assert.Equal(t, events.EventParmChanged, got.EventType)
	}
}

// TestStreamDisconnect checks that a departed client is unregistered
// and later publishes do not panic.
func TestStreamDisconnect(t *testing.T) {
	hub, url := newStreamServer(t)
	ws := dial(t, url)

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 },
		time.Second, 5*time.Millisecond)

	require.NoError(t, ws.Close())
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 },
		time.Second, 5*time.Millisecond)

	hub.Record(events.NewEvent(events.EventFrameChanged, events.ScopeScene, "frame:10"))
}

// TestStreamSlowClient checks that a subscriber that never reads does
// not block publishers.
func TestStreamSlowClient(t *testing.T) {
	hub, url := newStreamServer(t)
	dial(t, url) // never reads

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 },
		time.Second, 5*time.Millisecond)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < clientBuffer*4; i++ {
			hub.Record(events.NewEvent(events.EventCookComplete, events.ScopeNode, "/obj/geo1/grid1"))
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Record blocked on a slow client")
	}
}

// TestHubClose checks shutdown behavior for existing and new clients.
func TestHubClose(t *testing.T) {
	hub, url := newStreamServer(t)
	ws := dial(t, url)

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 },
		time.Second, 5*time.Millisecond)

	hub.Close()
	hub.Close() // idempotent

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := ws.ReadMessage()
	assert.Error(t, err)

	// New connections are upgraded then immediately dropped.
	late, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		defer late.Close()
		require.NoError(t, late.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, _, err = late.ReadMessage()
		assert.Error(t, err)
	}
	assert.Equal(t, 0, hub.ClientCount())
}
