// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcpfleet/runtime/internal/jsonrpc2"
)

func newEchoWSServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{Subprotocols: []string{"mcp"}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			msgType, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if msgType == websocket.TextMessage {
				conn.WriteMessage(websocket.TextMessage, data)
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http")
}

func TestWebSocketTransport_SendReceive(t *testing.T) {
	srv := newEchoWSServer(t)
	tr := NewWebSocketTransport(WebSocketOptions{
		Options: Options{ServerID: "ws1"},
		URL:     wsURL(srv.URL),
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tr.Connect(ctx); err != nil {
		t.Fatalf("Connect() err = %v", err)
	}
	defer tr.Disconnect(context.Background())

	id := jsonrpc2.NewID("1")
	if err := tr.Send(ctx, &jsonrpc2.Frame{ID: &id, Method: "ping"}); err != nil {
		t.Fatalf("Send() err = %v", err)
	}

	deadline := time.After(3 * time.Second)
	for {
		select {
		case ev := <-tr.Events():
			if ev.Message == nil && ev.ErrKind == "" {
				continue // state change emitted by Connect
			}
			if ev.Message == nil || ev.Message.Method != "ping" {
				t.Errorf("Events() got %+v, want echoed ping frame", ev)
			}
			return
		case <-deadline:
			t.Fatal("timed out waiting for echoed frame")
		}
	}
}

func TestWebSocketTransport_ConnectFailure(t *testing.T) {
	tr := NewWebSocketTransport(WebSocketOptions{
		Options: Options{ServerID: "ws2"},
		URL:     "ws://127.0.0.1:1/nope",
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := tr.Connect(ctx); err == nil {
		t.Fatal("Connect() err = nil, want dial failure")
	}
	if tr.State() != StateError {
		t.Errorf("State() = %v, want StateError", tr.State())
	}
}

func TestWebSocketTransport_GracefulDisconnect(t *testing.T) {
	srv := newEchoWSServer(t)
	tr := NewWebSocketTransport(WebSocketOptions{
		Options: Options{ServerID: "ws3"},
		URL:     wsURL(srv.URL),
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tr.Connect(ctx); err != nil {
		t.Fatalf("Connect() err = %v", err)
	}
	if err := tr.Disconnect(context.Background()); err != nil {
		t.Fatalf("Disconnect() err = %v", err)
	}
	if tr.State() != StateDisconnected {
		t.Errorf("State() = %v, want StateDisconnected", tr.State())
	}
}
