// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package rpc implements the request/response correlator that sits
// between a session and its transport: it assigns ids, tracks pending
// requests against a per-request timeout, and fans notifications out
// to method-keyed subscribers. It has no opinion about what a
// transport is; it only ever sees jsonrpc2.Frame values.
package rpc

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mcpfleet/runtime/internal/jsonrpc2"
)

// Notification is a decoded server-initiated notification handed to a
// subscriber: either it matched a registered method, or it is the
// generic fallback for an unmatched one.
type Notification struct {
	Method string
	Params jsonrpc2.RawMessage
}

// RawMessage is re-exported for subscriber convenience.
type RawMessage = jsonrpc2.RawMessage

// Sender is the one thing the correlator needs from a transport: a way
// to put a frame on the wire.
type Sender interface {
	Send(ctx context.Context, frame *jsonrpc2.Frame) error
}

type pending struct {
	resultCh chan result
	timer    *time.Timer
}

type result struct {
	raw  jsonrpc2.RawMessage
	err  *jsonrpc2.Error
	fail error // set by Close
}

// Correlator matches responses to requests by id and fans out
// notifications. One Correlator serves exactly one session.
type Correlator struct {
	sender   Sender
	serverID string

	mu      sync.Mutex
	pend    map[string]*pending
	subs    map[string][]chan Notification
	generic []chan Notification

	nextID atomic.Uint64

	closed   bool
	closeErr error
}

// New builds a Correlator that sends outgoing frames via sender. serverID
// is the owning session's server id; it is prefixed into every id this
// correlator mints (spec.md §3 Invariant 5: "<server-id>-<monotonic
// counter>"), so ids stay distinguishable across sessions sharing
// process-global state.
func New(sender Sender, serverID string) *Correlator {
	return &Correlator{
		sender:   sender,
		serverID: serverID,
		pend:     make(map[string]*pending),
		subs:     make(map[string][]chan Notification),
	}
}

// Subscribe registers ch to receive notifications for method. A method
// may have multiple subscribers; all receive every matching
// notification. Passing "" subscribes to the generic (unmatched)
// fallback stream instead.
func (c *Correlator) Subscribe(method string, ch chan Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if method == "" {
		c.generic = append(c.generic, ch)
		return
	}
	c.subs[method] = append(c.subs[method], ch)
}

// Request assigns an id, sends req (Method/Params already set, ID and
// Jsonrpc are overwritten), and blocks until a matching response
// arrives, ctx is cancelled, or timeout elapses. A cancelled wait
// removes the pending entry eagerly; a response that arrives afterward
// is silently dropped, matching spec's no-FIFO-assumption contract.
func (c *Correlator) Request(ctx context.Context, method string, params jsonrpc2.RawMessage, timeout time.Duration) (jsonrpc2.RawMessage, error) {
	id := jsonrpc2.NewID(fmt.Sprintf("%s-%d", c.serverID, c.nextID.Add(1)))
	key := id.String()

	p := &pending{resultCh: make(chan result, 1)}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, c.closeErr
	}
	c.pend[key] = p
	c.mu.Unlock()

	cleanup := func() {
		c.mu.Lock()
		delete(c.pend, key)
		c.mu.Unlock()
		if p.timer != nil {
			p.timer.Stop()
		}
	}

	frame := &jsonrpc2.Frame{ID: &id, Method: method, Params: params}
	if err := c.sender.Send(ctx, frame); err != nil {
		cleanup()
		return nil, fmt.Errorf("rpc: send %s: %w", method, err)
	}

	if timeout > 0 {
		p.timer = time.AfterFunc(timeout, func() {
			c.mu.Lock()
			_, ok := c.pend[key]
			delete(c.pend, key)
			c.mu.Unlock()
			if ok {
				select {
				case p.resultCh <- result{err: &jsonrpc2.Error{Code: jsonrpc2.CodeTimeout, Message: fmt.Sprintf("rpc: %s timed out after %s", method, timeout)}}:
				default:
				}
			}
		})
	}

	select {
	case r := <-p.resultCh:
		cleanup()
		if r.fail != nil {
			return nil, r.fail
		}
		if r.err != nil {
			return nil, r.err
		}
		return r.raw, nil
	case <-ctx.Done():
		cleanup()
		return nil, ctx.Err()
	}
}

// Notify sends a one-way notification (no id, no response expected).
func (c *Correlator) Notify(ctx context.Context, method string, params jsonrpc2.RawMessage) error {
	frame := &jsonrpc2.Frame{Method: method, Params: params}
	return c.sender.Send(ctx, frame)
}

// Deliver routes one inbound frame: responses settle a pending
// Request, notifications fan out to subscribers of their method (or
// the generic stream if none). It is the session's job to call this
// for every jsonrpc2.Frame a transport emits.
func (c *Correlator) Deliver(f *jsonrpc2.Frame) {
	kind, err := f.Classify()
	if err != nil {
		return
	}
	switch kind {
	case jsonrpc2.KindResponse:
		c.deliverResponse(f)
	case jsonrpc2.KindNotification:
		c.deliverNotification(f)
	default:
		// Requests arriving on a client session have no handler; the
		// server-initiated-request surface (sampling, elicitation,
		// roots) is out of scope for this client.
	}
}

func (c *Correlator) deliverResponse(f *jsonrpc2.Frame) {
	key := f.ID.String()
	c.mu.Lock()
	p, ok := c.pend[key]
	if ok {
		delete(c.pend, key)
	}
	c.mu.Unlock()
	if !ok {
		// Late response for a cancelled or already-timed-out wait.
		return
	}
	if p.timer != nil {
		p.timer.Stop()
	}
	r := result{raw: f.Result, err: f.Error}
	select {
	case p.resultCh <- r:
	default:
	}
}

func (c *Correlator) deliverNotification(f *jsonrpc2.Frame) {
	n := Notification{Method: f.Method, Params: f.Params}
	c.mu.Lock()
	subs := c.subs[f.Method]
	generic := c.generic
	c.mu.Unlock()

	target := subs
	if len(target) == 0 {
		target = generic
	}
	for _, ch := range target {
		select {
		case ch <- n:
		default:
		}
	}
}

// Close fails every pending request with err and prevents new ones.
func (c *Correlator) Close(err error) {
	if err == nil {
		err = fmt.Errorf("rpc: correlator closed")
	}
	c.mu.Lock()
	c.closed = true
	c.closeErr = err
	pend := c.pend
	c.pend = make(map[string]*pending)
	c.mu.Unlock()

	for _, p := range pend {
		if p.timer != nil {
			p.timer.Stop()
		}
		select {
		case p.resultCh <- result{fail: err}:
		default:
		}
	}
}
