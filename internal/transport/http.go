// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mcpfleet/runtime/internal/jsonrpc2"
)

// ReadinessMode controls how HTTPTransport.Connect interprets a probe of
// <base>/health. Resolves the Open Question in spec.md §9: the source
// behavior (404 = reachable) is kept as ReadinessLenient, the default;
// ReadinessStrict requires a 2xx.
type ReadinessMode int

const (
	ReadinessLenient ReadinessMode = iota
	ReadinessStrict
)

// HTTPOptions configures an HTTPTransport.
type HTTPOptions struct {
	Options

	BaseURL string
	Headers map[string]string
	Client  *http.Client

	Readiness ReadinessMode
	// MaxBodyBytes bounds a single POST /rpc response body or a single
	// /events line; 0 = DefaultMaxBodyBytes, <0 = unlimited.
	MaxBodyBytes int64
}

func (o HTTPOptions) withDefaults() HTTPOptions {
	if o.Client == nil {
		o.Client = &http.Client{Timeout: 30 * time.Second}
	}
	o.BaseURL = strings.TrimSuffix(o.BaseURL, "/")
	return o
}

// HTTPTransport speaks MCP as request/response HTTP with an optional
// server-sent-events push source, grounded on this corpus's streamable
// HTTP client shape (POST-then-read, a background SSE consumer loop)
// adapted to spec.md §6's simpler, session-less framing: POST
// <base>/rpc, GET <base>/health, GET <base>/events. There is no
// Mcp-Session-Id handshake or SSE-resumption protocol here; the real
// streamable-HTTP spec's multiplexed session model is a server-side
// concept out of scope for this client.
type HTTPTransport struct {
	opts HTTPOptions

	mu    sync.Mutex
	state State

	events     chan Event
	cancelSSE  context.CancelFunc
	sseDone    chan struct{}
}

var _ Transport = (*HTTPTransport)(nil)

func NewHTTPTransport(opts HTTPOptions) *HTTPTransport {
	return &HTTPTransport{
		opts:   opts.withDefaults(),
		state:  StateDisconnected,
		events: make(chan Event, 64),
	}
}

func (t *HTTPTransport) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *HTTPTransport) setState(from, to State) {
	t.mu.Lock()
	t.state = to
	t.mu.Unlock()
	t.emit(Event{From: from, To: to})
}

func (t *HTTPTransport) emit(ev Event) {
	select {
	case t.events <- ev:
	default:
		t.opts.Logger.Warn("http transport: event dropped, channel full", "server_id", t.opts.ServerID)
	}
}

func (t *HTTPTransport) Events() <-chan Event { return t.events }

func (t *HTTPTransport) applyHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range t.opts.Headers {
		req.Header.Set(k, v)
	}
}

// Connect probes <base>/health for readiness; per spec §4.B any 2xx or
// 404 is accepted as "reachable" unless Readiness is set to strict.
func (t *HTTPTransport) Connect(ctx context.Context) error {
	t.setState(StateDisconnected, StateConnecting)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.opts.BaseURL+"/health", nil)
	if err != nil {
		t.setState(StateConnecting, StateError)
		return fmt.Errorf("http transport: build health probe: %w", err)
	}
	t.applyHeaders(req)
	resp, err := t.opts.Client.Do(req)
	if err != nil {
		t.setState(StateConnecting, StateError)
		t.emit(Event{ErrKind: ErrorConnectFailed, Err: err})
		return fmt.Errorf("%w: %v", ErrorConnectFailed, err)
	}
	resp.Body.Close()

	reachable := resp.StatusCode/100 == 2 || (t.opts.Readiness == ReadinessLenient && resp.StatusCode == http.StatusNotFound)
	if !reachable {
		t.setState(StateConnecting, StateError)
		err := fmt.Errorf("health probe returned status %d", resp.StatusCode)
		t.emit(Event{ErrKind: ErrorConnectFailed, Err: err})
		return fmt.Errorf("%w: %v", ErrorConnectFailed, err)
	}

	t.setState(StateConnecting, StateConnected)
	t.startEventStream()
	return nil
}

// startEventStream opens a best-effort GET <base>/events SSE source;
// servers that don't implement it simply never deliver anything on it,
// which is not an error.
func (t *HTTPTransport) startEventStream() {
	ctx, cancel := context.WithCancel(context.Background())
	t.mu.Lock()
	t.cancelSSE = cancel
	t.sseDone = make(chan struct{})
	done := t.sseDone
	t.mu.Unlock()

	go func() {
		defer close(done)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.opts.BaseURL+"/events", nil)
		if err != nil {
			return
		}
		req.Header.Set("Accept", "text/event-stream")
		for k, v := range t.opts.Headers {
			req.Header.Set(k, v)
		}
		resp, err := t.opts.Client.Do(req)
		if err != nil {
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return
		}
		// The limit bounds each line, not the stream as a whole.
		maxLine := math.MaxInt
		if limit := effectiveMaxBodyBytes(t.opts.MaxBodyBytes); limit > 0 {
			maxLine = int(limit)
		}
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, min(4096, maxLine)), maxLine)
		for scanner.Scan() {
			line := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "data:"))
			if line == "" {
				continue
			}
			f, _, err := jsonrpc2.Decode([]byte(line))
			if err != nil {
				t.emit(Event{ErrKind: ErrorMalformedFrame, Err: err})
				continue
			}
			t.emit(Event{Message: f})
		}
	}()
}

// Send POSTs one frame to <base>/rpc and decodes the JSON response body,
// which may be a single frame or a batch (spec §6's HTTP framing).
func (t *HTTPTransport) Send(ctx context.Context, frame *jsonrpc2.Frame) error {
	body, err := jsonrpc2.Encode(frame)
	if err != nil {
		return fmt.Errorf("http transport: encode: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.opts.BaseURL+"/rpc", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("http transport: build request: %w", err)
	}
	t.applyHeaders(req)

	resp, err := t.opts.Client.Do(req)
	if err != nil {
		t.emit(Event{ErrKind: ErrorWriteFailed, Err: err})
		return fmt.Errorf("%w: %v", ErrorWriteFailed, err)
	}
	defer resp.Body.Close()

	limit := effectiveMaxBodyBytes(t.opts.MaxBodyBytes)
	var r io.Reader = resp.Body
	if limit > 0 {
		r = io.LimitReader(resp.Body, limit)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("http transport: read response: %w", err)
	}
	if len(data) == 0 {
		// A notification legitimately has nothing to respond with.
		return nil
	}
	frames, err := jsonrpc2.DecodeBatch(data)
	if err != nil {
		t.emit(Event{ErrKind: ErrorMalformedFrame, Err: err})
		return nil
	}
	for _, f := range frames {
		t.emit(Event{Message: f})
	}
	return nil
}

// Disconnect stops the /events reader. There is no persistent
// connection to tear down beyond that.
func (t *HTTPTransport) Disconnect(ctx context.Context) error {
	t.mu.Lock()
	cancel := t.cancelSSE
	done := t.sseDone
	t.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if done != nil {
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	}
	t.setState(t.State(), StateDisconnected)
	return nil
}
