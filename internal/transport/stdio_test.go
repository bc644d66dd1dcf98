// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"context"
	"testing"
	"time"

	"github.com/mcpfleet/runtime/internal/jsonrpc2"
)

// cat echoes each stdin line straight back to stdout, standing in for an
// MCP server for transport-level tests; no real MCP server is spawned
// anywhere in this module's tests.
func TestStdioTransport_SendReceive(t *testing.T) {
	tr := NewStdioTransport(StdioOptions{
		Options: Options{ServerID: "cat-server"},
		Command: "cat",
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tr.Connect(ctx); err != nil {
		t.Skipf("cat not available: %v", err)
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
			if ev.Message == nil {
				t.Fatalf("Events() got %+v, want a message", ev)
			}
			if ev.Message.Method != "ping" {
				t.Errorf("Events() method = %q, want %q", ev.Message.Method, "ping")
			}
			return
		case <-deadline:
			t.Fatal("timed out waiting for echoed frame")
		}
	}
}

func TestStdioTransport_SpawnFailure(t *testing.T) {
	tr := NewStdioTransport(StdioOptions{
		Options: Options{ServerID: "missing"},
		Command: "mcpfleet-runtime-definitely-not-a-real-binary",
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := tr.Connect(ctx); err == nil {
		t.Fatal("Connect() err = nil, want spawn failure")
	}
	if tr.State() != StateError {
		t.Errorf("State() = %v, want StateError", tr.State())
	}
}

// TestStdioTransport_ExitsDuringReadyWindow covers a process that spawns
// successfully but exits before the ready delay elapses (spec's "wait
// >=100ms after spawn; if the process has exited, fail with
// SpawnFailed"), as opposed to TestStdioTransport_SpawnFailure's
// cmd.Start()-never-succeeds case.
func TestStdioTransport_ExitsDuringReadyWindow(t *testing.T) {
	tr := NewStdioTransport(StdioOptions{
		Options:    Options{ServerID: "quick-exit"},
		Command:    "false",
		ReadyDelay: time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tr.Connect(ctx); err == nil {
		t.Skipf("false not available to exercise early-exit detection")
	}
	if tr.State() != StateError {
		t.Errorf("State() = %v, want StateError", tr.State())
	}
}
