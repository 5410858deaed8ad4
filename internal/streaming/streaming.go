// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package streaming broadcasts merge progress events to websocket clients
// for `chamerge watch --serve`. Every connected client receives the same
// sequence of frames; a slow client misses the frames that do not fit its
// buffer rather than being allowed to stall the broadcast for everyone else.
package streaming

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/AleutianAI/chamerge/internal/merge"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// Frame is the JSON broadcast unit, one per merge.Event.
type Frame struct {
	ConnectionID  string    `json:"connectionId,omitempty"`
	CorrelationID string    `json:"correlationId"`
	Phase         string    `json:"phase"`
	At            time.Time `json:"at"`
}

// FrameFromEvent converts a merge.Event to its wire frame.
func FrameFromEvent(e merge.Event) Frame {
	return Frame{CorrelationID: e.CorrelationID, Phase: e.Phase, At: e.At}
}

// clientBufferSize bounds how many frames a client can fall behind by
// before Hub.Broadcast starts dropping frames for it rather than blocking.
const clientBufferSize = 64

type client struct {
	conn *websocket.Conn
	send chan Frame
}

// Hub fans out Frames to every currently connected websocket client.
type Hub struct {
	mu      sync.Mutex
	clients map[string]*client
	logger  *slog.Logger
}

// NewHub creates an empty Hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{clients: make(map[string]*client), logger: logger}
}

// ServeHTTP upgrades the request to a websocket and registers the
// connection with the hub until it disconnects or a write fails.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	id := uuid.NewString()
	c := &client{conn: conn, send: make(chan Frame, clientBufferSize)}

	h.mu.Lock()
	h.clients[id] = c
	h.mu.Unlock()
	h.logger.Info("watch client connected", "connection_id", id)

	go h.writeLoop(id, c)
	h.readLoop(id, c)
}

// writeLoop drains c.send to the socket. It owns the connection's write
// side exclusively, since gorilla/websocket connections are not safe for
// concurrent writers.
func (h *Hub) writeLoop(id string, c *client) {
	for frame := range c.send {
		frame.ConnectionID = id
		if err := c.conn.WriteJSON(frame); err != nil {
			h.logger.Warn("watch client write failed", "connection_id", id, "error", err)
			h.remove(id)
			return
		}
	}
}

// readLoop discards client messages (this protocol is server-to-client
// only) but must keep reading so gorilla/websocket processes control
// frames (ping/pong/close) and detects disconnection.
func (h *Hub) readLoop(id string, c *client) {
	defer h.remove(id)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.logger.Info("watch client disconnected", "connection_id", id, "error", err)
			return
		}
	}
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	c, ok := h.clients[id]
	if ok {
		delete(h.clients, id)
	}
	h.mu.Unlock()
	if ok {
		close(c.send)
		c.conn.Close()
	}
}

// Broadcast sends frame to every connected client. For a client whose buffer
// is full, the frame is dropped (the client stays connected) rather than
// allowed to back-pressure the broadcast.
func (h *Hub) Broadcast(frame Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		select {
		case c.send <- frame:
		default:
			h.logger.Warn("watch client buffer full, dropping", "connection_id", id)
		}
	}
}

// Relay consumes progress events from a merge.Merge run and broadcasts
// each as a Frame until the channel closes.
func (h *Hub) Relay(events <-chan merge.Event) {
	for e := range events {
		h.Broadcast(FrameFromEvent(e))
	}
}

// ClientCount reports the number of currently connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
