// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package transport implements the three wire substrates an MCP session
// can run over (stdio, http, websocket) behind one contract: connect,
// disconnect, send a frame, and a uniform event stream of inbound
// messages, errors, and connection-state changes.
package transport

import (
	"context"
	"log/slog"

	"github.com/mcpfleet/runtime/internal/jsonrpc2"
)

// State is a transport's connection state, independent of session-level
// concepts like "initialized".
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateError
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// ErrorKind classifies a transport-level Error event, matching the
// "Transport" row of the error taxonomy.
type ErrorKind string

const (
	ErrorSpawnFailed    ErrorKind = "SpawnFailed"
	ErrorProcessExited  ErrorKind = "ProcessExited"
	ErrorConnectFailed  ErrorKind = "ConnectFailed"
	ErrorWriteFailed    ErrorKind = "WriteFailed"
	ErrorUnexpectedClose ErrorKind = "UnexpectedClose"
	ErrorMalformedFrame ErrorKind = "MalformedFrame"
)

// Event is the union of what a Transport emits: a message (Message set),
// an error (ErrKind and Err set), or a state change (only From and To
// set).
type Event struct {
	Message *jsonrpc2.Frame

	ErrKind ErrorKind
	Err     error

	From, To State
}

// Transport moves encoded frames between this process and a remote MCP
// endpoint. Implementations (stdio, http, websocket) own exactly one
// underlying connection; the session never reaches into their
// internals, only ever calling these five methods and reading Events.
type Transport interface {
	// Connect establishes the underlying connection. It does not perform
	// the MCP handshake; that's the session's job.
	Connect(ctx context.Context) error
	// Disconnect tears down the connection on a best-effort basis. It is
	// not cancellable and is safe to call more than once.
	Disconnect(ctx context.Context) error
	// Send transmits one frame. It may block on transport-level
	// backpressure (e.g. a full stdin pipe).
	Send(ctx context.Context, frame *jsonrpc2.Frame) error
	// Events returns the channel of inbound messages, errors, and state
	// changes. Disconnect does not close it.
	Events() <-chan Event
	// State reports the transport's current connection state.
	State() State
}

// Options bundles the fields every transport variant shares, each
// grounded on a ServerConfig knob (see mcp/config.go).
type Options struct {
	ServerID       string
	Logger         *slog.Logger
	ConnectTimeout int // ms
}
