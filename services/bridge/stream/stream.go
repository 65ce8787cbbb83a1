// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package stream pushes invalidation events to WebSocket subscribers.
//
// The polling endpoint drains the shared event queue, which works for a
// single consumer but starves a second one. Streaming clients get their
// own buffered feed instead: the Hub implements events.Sink and fans
// every published event out to all connected clients.
package stream

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/AleutianAI/SceneBridge/services/bridge/events"
)

// clientBuffer is the per-client event backlog. A client that falls
// further behind than this starts losing events.
const clientBuffer = 64

var upgrader = websocket.Upgrader{
	// The bridge binds to loopback; browser-origin checks add nothing here.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  4 * 1024,
	WriteBufferSize: 4 * 1024,
}

func sendJSON(ws *websocket.Conn, v interface{}) error {
	err := ws.WriteJSON(v)
	if err != nil {
		slog.Warn("Failed to write WebSocket JSON", "error", err)
	}
	return err
}

// client is one connected subscriber. The hub owns the send channel:
// it is closed only while holding the hub mutex, after the client has
// been removed from the map, so Record can never send on a closed
// channel.
type client struct {
	conn *websocket.Conn
	send chan events.Event
}

// Hub tracks connected WebSocket clients and broadcasts events to them.
//
// Thread Safety: all methods are safe for concurrent use.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
	}
}

// Record implements events.Sink.
//
// Description:
//
//	Fans the event out to every connected client without blocking.
//	Clients that cannot keep up lose events rather than stalling the
//	host thread that publishes them.
func (h *Hub) Record(e events.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for cl := range h.clients {
		select {
		case cl.send <- e:
		default:
			slog.Warn("Dropping event for slow stream client",
				"event_type", e.EventType, "path", e.Path)
		}
	}
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and rejects new connections.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for cl := range h.clients {
		delete(h.clients, cl)
		close(cl.send)
		_ = cl.conn.Close()
	}
}

// add registers a client. Returns false if the hub is already closed.
func (h *Hub) add(cl *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[cl] = struct{}{}
	return true
}

// remove unregisters a client and releases its writer.
func (h *Hub) remove(cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[cl]; !ok {
		return
	}
	delete(h.clients, cl)
	close(cl.send)
}

// Handler returns the gin handler that upgrades the connection and
// streams events until the client disconnects.
//
// Description:
//
//	Each connection gets a writer goroutine draining its send channel.
//	The handler goroutine itself sits in a read loop whose only job is
//	to notice the disconnect; inbound messages are discarded.
func (h *Hub) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Error("failed to upgrade the websocket", "error", err)
			return
		}

		cl := &client{
			conn: ws,
			send: make(chan events.Event, clientBuffer),
		}
		if !h.add(cl) {
			_ = ws.Close()
			return
		}
		slog.Info("Event stream client connected", "remote", ws.RemoteAddr().String())

		go cl.writeLoop()

		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				slog.Info("Event stream client disconnected", "error", err.Error())
				break
			}
		}
		h.remove(cl)
		_ = ws.Close()
	}
}

// writeLoop drains the send channel onto the wire. It exits when the
// hub closes the channel or a write fails; closing the connection on a
// failed write kicks the read loop into cleaning up.
func (cl *client) writeLoop() {
	for e := range cl.send {
		if err := sendJSON(cl.conn, e); err != nil {
			_ = cl.conn.Close()
			break
		}
	}
}
