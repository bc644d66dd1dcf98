// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package rpc

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mcpfleet/runtime/internal/jsonrpc2"
)

// fakeSender captures sent frames and lets a test script responses back
// in, standing in for a transport.
type fakeSender struct {
	mu   sync.Mutex
	sent []*jsonrpc2.Frame
}

func (s *fakeSender) Send(ctx context.Context, f *jsonrpc2.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *f
	s.sent = append(s.sent, &cp)
	return nil
}

func (s *fakeSender) last() *jsonrpc2.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent[len(s.sent)-1]
}

func TestCorrelator_RequestResponseByID(t *testing.T) {
	sender := &fakeSender{}
	c := New(sender, "s1")

	done := make(chan struct{})
	var got jsonrpc2.RawMessage
	var gotErr error
	go func() {
		defer close(done)
		got, gotErr = c.Request(context.Background(), "ping", nil, time.Second)
	}()

	time.Sleep(20 * time.Millisecond)
	id := *sender.last().ID
	c.Deliver(&jsonrpc2.Frame{Jsonrpc: jsonrpc2.Version, ID: &id, Result: []byte(`{"ok":true}`)})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for Request to return")
	}
	if gotErr != nil {
		t.Fatalf("Request() err = %v", gotErr)
	}
	if string(got) != `{"ok":true}` {
		t.Errorf("Request() result = %s", got)
	}
}

// TestCorrelator_RequestIDHasServerIDPrefix checks the minted id matches
// spec.md §3 Invariant 5's "<server-id>-<monotonic counter>" format.
func TestCorrelator_RequestIDHasServerIDPrefix(t *testing.T) {
	sender := &fakeSender{}
	c := New(sender, "srv-a")

	go c.Request(context.Background(), "ping", nil, time.Second)
	time.Sleep(20 * time.Millisecond)

	id := sender.last().ID.String()
	if want := "srv-a-1"; id != want {
		t.Errorf("Request() id = %q, want %q", id, want)
	}
}

// TestCorrelator_NoFIFOAssumption delivers responses out of send order
// and checks each still resolves its own waiter.
func TestCorrelator_NoFIFOAssumption(t *testing.T) {
	sender := &fakeSender{}
	c := New(sender, "s1")

	type outcome struct {
		idx int
		raw jsonrpc2.RawMessage
	}
	results := make(chan outcome, 2)
	for i := 0; i < 2; i++ {
		i := i
		go func() {
			raw, err := c.Request(context.Background(), "op", nil, time.Second)
			if err != nil {
				t.Errorf("Request(%d) err = %v", i, err)
				return
			}
			results <- outcome{idx: i, raw: raw}
		}()
	}

	time.Sleep(30 * time.Millisecond)
	sender.mu.Lock()
	ids := make([]jsonrpc2.ID, len(sender.sent))
	for i, f := range sender.sent {
		ids[i] = *f.ID
	}
	sender.mu.Unlock()
	if len(ids) != 2 {
		t.Fatalf("got %d sent frames, want 2", len(ids))
	}

	// Respond to the second request first.
	c.Deliver(&jsonrpc2.Frame{Jsonrpc: jsonrpc2.Version, ID: &ids[1], Result: []byte(`"second"`)})
	c.Deliver(&jsonrpc2.Frame{Jsonrpc: jsonrpc2.Version, ID: &ids[0], Result: []byte(`"first"`)})

	got := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case o := <-results:
			got[string(o.raw)] = true
		case <-time.After(time.Second):
			t.Fatal("timed out collecting results")
		}
	}
	if !got[`"first"`] || !got[`"second"`] {
		t.Errorf("got %v, want both ids resolved regardless of response order", got)
	}
}

func TestCorrelator_TimeoutAndLateResponseDropped(t *testing.T) {
	sender := &fakeSender{}
	c := New(sender, "s1")

	_, err := c.Request(context.Background(), "slow", nil, 10*time.Millisecond)
	if err == nil {
		t.Fatal("Request() err = nil, want timeout")
	}

	id := *sender.last().ID
	// Late response after the waiter already gave up must not panic or
	// block; it is simply dropped.
	c.Deliver(&jsonrpc2.Frame{Jsonrpc: jsonrpc2.Version, ID: &id, Result: []byte(`"too late"`)})
}

func TestCorrelator_CancelRemovesPendingEagerly(t *testing.T) {
	sender := &fakeSender{}
	c := New(sender, "s1")
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		_, err := c.Request(ctx, "op", nil, 0)
		errCh <- err
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err == nil {
			t.Fatal("Request() err = nil, want context cancellation error")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for cancellation to unblock Request")
	}

	c.mu.Lock()
	n := len(c.pend)
	c.mu.Unlock()
	if n != 0 {
		t.Errorf("pending map has %d entries after cancel, want 0", n)
	}
}

func TestCorrelator_NotificationFanOutAndGenericFallback(t *testing.T) {
	sender := &fakeSender{}
	c := New(sender, "s1")

	known := make(chan Notification, 1)
	generic := make(chan Notification, 1)
	c.Subscribe("notifications/log", known)
	c.Subscribe("", generic)

	c.Deliver(&jsonrpc2.Frame{Jsonrpc: jsonrpc2.Version, Method: "notifications/log", Params: []byte(`{"level":"info"}`)})
	c.Deliver(&jsonrpc2.Frame{Jsonrpc: jsonrpc2.Version, Method: "notifications/unknown/thing", Params: []byte(`{}`)})

	select {
	case n := <-known:
		if n.Method != "notifications/log" {
			t.Errorf("known subscriber got method %q", n.Method)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for known-method notification")
	}

	select {
	case n := <-generic:
		if n.Method != "notifications/unknown/thing" {
			t.Errorf("generic subscriber got method %q", n.Method)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for generic-fallback notification")
	}
}

func TestCorrelator_CloseFailsAllPending(t *testing.T) {
	sender := &fakeSender{}
	c := New(sender, "s1")

	errCh := make(chan error, 1)
	go func() {
		_, err := c.Request(context.Background(), "op", nil, 0)
		errCh <- err
	}()
	time.Sleep(20 * time.Millisecond)
	c.Close(nil)

	select {
	case err := <-errCh:
		if err == nil {
			t.Fatal("Request() err = nil, want close error")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for Close to fail pending request")
	}
}
