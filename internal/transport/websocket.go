// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcpfleet/runtime/internal/jsonrpc2"
	"github.com/mcpfleet/runtime/internal/ratelimit"
)

// WebSocketOptions configures a WebSocketTransport.
type WebSocketOptions struct {
	Options

	URL    string
	Header http.Header
	Dialer *websocket.Dialer

	PingInterval time.Duration
	PongTimeout  time.Duration

	ReconnectMaxAttempts int
	ReconnectBaseDelay   time.Duration
	// Pacer additionally caps the rate of reconnect dials across an
	// entire pool; nil disables pool-wide pacing (only this session's
	// own attempt-count cap and backoff apply).
	Pacer *ratelimit.Pacer
}

func (o WebSocketOptions) withDefaults() WebSocketOptions {
	if o.PingInterval <= 0 {
		o.PingInterval = 30 * time.Second
	}
	if o.PongTimeout <= 0 {
		o.PongTimeout = 5 * time.Second
	}
	if o.ReconnectMaxAttempts <= 0 {
		o.ReconnectMaxAttempts = 5
	}
	if o.ReconnectBaseDelay <= 0 {
		o.ReconnectBaseDelay = time.Second
	}
	if o.Dialer == nil {
		o.Dialer = &websocket.Dialer{}
	}
	return o
}

// WebSocketTransport speaks MCP over a full-duplex websocket connection
// with the 'mcp' subprotocol. Read/Write/Close shape is kept from this
// SDK's own WebSocketClientTransport/websocketConn; a ping/pong
// liveness loop and reconnect-with-backoff, absent from that source
// file, are added per spec.md §4.B.
type WebSocketTransport struct {
	opts WebSocketOptions

	mu      sync.Mutex
	state   State
	conn    *websocket.Conn
	writeMu sync.Mutex

	events  chan Event
	closing chan struct{}
	attempt int
}

var _ Transport = (*WebSocketTransport)(nil)

func NewWebSocketTransport(opts WebSocketOptions) *WebSocketTransport {
	return &WebSocketTransport{
		opts:    opts.withDefaults(),
		state:   StateDisconnected,
		events:  make(chan Event, 64),
		closing: make(chan struct{}),
	}
}

func (t *WebSocketTransport) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *WebSocketTransport) setState(from, to State) {
	t.mu.Lock()
	t.state = to
	t.mu.Unlock()
	t.emit(Event{From: from, To: to})
}

func (t *WebSocketTransport) emit(ev Event) {
	select {
	case t.events <- ev:
	case <-t.closing:
	}
}

func (t *WebSocketTransport) Events() <-chan Event { return t.events }

// Connect opens the websocket and starts the read loop and ping cycle.
func (t *WebSocketTransport) Connect(ctx context.Context) error {
	t.setState(StateDisconnected, StateConnecting)
	dialer := *t.opts.Dialer
	dialer.Subprotocols = []string{"mcp"}

	conn, resp, err := dialer.DialContext(ctx, t.opts.URL, t.opts.Header)
	if err != nil {
		t.setState(StateConnecting, StateError)
		detail := err
		if resp != nil {
			detail = fmt.Errorf("%w (status %d)", err, resp.StatusCode)
		}
		t.emit(Event{ErrKind: ErrorConnectFailed, Err: detail})
		return fmt.Errorf("%w: %v", ErrorConnectFailed, detail)
	}

	t.mu.Lock()
	t.conn = conn
	t.attempt = 0
	t.mu.Unlock()

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(t.opts.PingInterval + t.opts.PongTimeout))
	})

	go t.readLoop(conn)
	go t.pingLoop(conn)

	t.setState(StateConnecting, StateConnected)
	return nil
}

func (t *WebSocketTransport) readLoop(conn *websocket.Conn) {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-t.closing:
				// Disconnect closed the socket and sets the final state itself.
				return
			default:
			}
			if t.State() == StateConnected {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					t.setState(StateConnected, StateDisconnected)
					return
				}
				t.handleUnexpectedClose(err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		f, _, err := jsonrpc2.Decode(data)
		if err != nil {
			t.emit(Event{ErrKind: ErrorMalformedFrame, Err: err})
			continue
		}
		t.emit(Event{Message: f})
	}
}

func (t *WebSocketTransport) pingLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(t.opts.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-t.closing:
			return
		case <-ticker.C:
			t.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(t.opts.PongTimeout))
			t.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// handleUnexpectedClose implements spec §4.B's reconnect-with-backoff:
// up to ReconnectMaxAttempts, delay base*2^(n-1), success resets the
// counter.
func (t *WebSocketTransport) handleUnexpectedClose(cause error) {
	t.setState(StateConnected, StateReconnecting)
	t.emit(Event{ErrKind: ErrorUnexpectedClose, Err: cause})

	for {
		t.mu.Lock()
		t.attempt++
		attempt := t.attempt
		t.mu.Unlock()

		if attempt > t.opts.ReconnectMaxAttempts {
			t.setState(StateReconnecting, StateError)
			t.emit(Event{ErrKind: ErrorUnexpectedClose, Err: fmt.Errorf("reconnect: exhausted %d attempts: %w", t.opts.ReconnectMaxAttempts, cause)})
			return
		}

		delay := ratelimit.Backoff(t.opts.ReconnectBaseDelay, attempt)
		select {
		case <-t.closing:
			return
		case <-time.After(delay):
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if t.opts.Pacer != nil {
			if err := t.opts.Pacer.Wait(ctx); err != nil {
				cancel()
				continue
			}
		}
		err := t.Connect(ctx)
		cancel()
		if err == nil {
			return
		}
	}
}

// Send writes one text frame; writes are serialized so ping control
// frames and user writes never interleave.
func (t *WebSocketTransport) Send(ctx context.Context, frame *jsonrpc2.Frame) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("websocket transport: not connected")
	}
	data, err := jsonrpc2.Encode(frame)
	if err != nil {
		return fmt.Errorf("websocket transport: encode: %w", err)
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetWriteDeadline(deadline)
		defer conn.SetWriteDeadline(time.Time{})
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.emit(Event{ErrKind: ErrorWriteFailed, Err: err})
		return fmt.Errorf("%w: %v", ErrorWriteFailed, err)
	}
	return nil
}

// Disconnect sends a normal-closure frame (with a 5s write deadline) and
// then closes the socket at once; it does not wait for the peer's close
// frame.
func (t *WebSocketTransport) Disconnect(ctx context.Context) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return nil
	}
	select {
	case <-t.closing:
	default:
		close(t.closing)
	}

	deadline := time.Now().Add(5 * time.Second)
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	conn.SetReadDeadline(deadline)
	_ = conn.Close()

	t.setState(t.State(), StateDisconnected)
	return nil
}
