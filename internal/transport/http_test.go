// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mcpfleet/runtime/internal/jsonrpc2"
)

func newTestServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(handler))
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPTransport_ConnectHealthLenient(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
	})
	tr := NewHTTPTransport(HTTPOptions{Options: Options{ServerID: "s1"}, BaseURL: srv.URL})
	if err := tr.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() err = %v, want lenient accept of 404", err)
	}
	tr.Disconnect(context.Background())
}

func TestHTTPTransport_ConnectHealthStrictRejects404(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	tr := NewHTTPTransport(HTTPOptions{
		Options:   Options{ServerID: "s1"},
		BaseURL:   srv.URL,
		Readiness: ReadinessStrict,
	})
	if err := tr.Connect(context.Background()); err == nil {
		t.Fatal("Connect() err = nil, want strict rejection of 404")
	}
}

func TestHTTPTransport_SendDecodesResponse(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.WriteHeader(http.StatusOK)
		case "/rpc":
			body, _ := io.ReadAll(r.Body)
			f, _, err := jsonrpc2.Decode(body)
			if err != nil {
				t.Errorf("server: Decode() err = %v", err)
				return
			}
			id := *f.ID
			resp := &jsonrpc2.Frame{ID: &id, Result: []byte(`{"ok":true}`)}
			data, _ := jsonrpc2.Encode(resp)
			w.Header().Set("Content-Type", "application/json")
			w.Write(data)
		}
	})
	tr := NewHTTPTransport(HTTPOptions{Options: Options{ServerID: "s1"}, BaseURL: srv.URL})
	if err := tr.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() err = %v", err)
	}
	defer tr.Disconnect(context.Background())

	id := jsonrpc2.NewID("1")
	if err := tr.Send(context.Background(), &jsonrpc2.Frame{ID: &id, Method: "ping"}); err != nil {
		t.Fatalf("Send() err = %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-tr.Events():
			if ev.Message == nil && ev.ErrKind == "" {
				continue // state change emitted by Connect
			}
			if ev.Message == nil || string(ev.Message.Result) != `{"ok":true}` {
				t.Errorf("Events() got %+v", ev)
			}
			return
		case <-deadline:
			t.Fatal("timed out waiting for response event")
		}
	}
}
