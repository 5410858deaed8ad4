// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package streaming

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/chamerge/internal/merge"
)

func dialHub(t *testing.T, hub *Hub) (*websocket.Conn, func()) {
	t.Helper()
	server := httptest.NewServer(hub)
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	return conn, func() {
		conn.Close()
		server.Close()
	}
}

func TestHub_BroadcastsFrameToConnectedClient(t *testing.T) {
	hub := NewHub(nil)
	conn, cleanup := dialHub(t, hub)
	defer cleanup()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	hub.Broadcast(Frame{CorrelationID: "abc", Phase: merge.PhaseHarvest, At: time.Now()})

	var frame Frame
	conn.SetReadDeadline(time.Now().Add(time.Second))
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "abc", frame.CorrelationID)
	assert.Equal(t, merge.PhaseHarvest, frame.Phase)
	assert.NotEmpty(t, frame.ConnectionID)
}

func TestHub_RemovesClientOnDisconnect(t *testing.T) {
	hub := NewHub(nil)
	conn, cleanup := dialHub(t, hub)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
	cleanup()
}

func TestHub_Relay_BroadcastsFromChannel(t *testing.T) {
	hub := NewHub(nil)
	conn, cleanup := dialHub(t, hub)
	defer cleanup()
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	events := make(chan merge.Event, 1)
	done := make(chan struct{})
	go func() {
		hub.Relay(events)
		close(done)
	}()

	events <- merge.Event{CorrelationID: "xyz", Phase: merge.PhaseDone, At: time.Now()}
	close(events)

	var frame Frame
	conn.SetReadDeadline(time.Now().Add(time.Second))
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "xyz", frame.CorrelationID)

	<-done
}

func TestFrameFromEvent(t *testing.T) {
	now := time.Now()
	e := merge.Event{CorrelationID: "id-1", Phase: merge.PhaseResolve, At: now}
	f := FrameFromEvent(e)
	assert.Equal(t, "id-1", f.CorrelationID)
	assert.Equal(t, merge.PhaseResolve, f.Phase)
	assert.Equal(t, now, f.At)
}

func TestHub_BroadcastWithNoClients(t *testing.T) {
	hub := NewHub(nil)
	assert.NotPanics(t, func() {
		hub.Broadcast(Frame{CorrelationID: "lonely"})
	})
}
